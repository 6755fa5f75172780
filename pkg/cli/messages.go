package cli

import (
	"errors"

	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/pkg/api"
)

func messageToMsg(message api.Message) logger.Msg {
	msg := logger.Msg{Kind: logger.Error, Text: message.Text}
	if message.Severity == api.SeverityWarning {
		msg.Kind = logger.Warning
	}
	if id, ok := logger.StringToMsgID(message.ID); ok {
		msg.ID = id
	}
	if loc := message.Location; loc != nil {
		msg.Location = &logger.MsgLocation{
			File:     loc.File,
			Line:     loc.Line,
			Column:   loc.Column,
			Length:   loc.Length,
			LineText: loc.LineText,
		}
	}
	return msg
}

// Returns everything an operation reported, in order. A failure without any
// messages still produces one error.
func msgsForResult(warnings []api.Message, err error) []logger.Msg {
	var msgs []logger.Msg
	var apiErr *api.Error

	switch {
	case errors.As(err, &apiErr):
		for _, note := range apiErr.Notes {
			msgs = append(msgs, messageToMsg(note))
		}
		hasError := false
		for _, msg := range msgs {
			if msg.Kind == logger.Error {
				hasError = true
				break
			}
		}
		if !hasError {
			msgs = append(msgs, messageToMsg(api.Message{Text: apiErr.Message, Location: apiErr.Location}))
		}

	case err != nil:
		msgs = append(msgs, logger.Msg{Kind: logger.Error, Text: err.Error()})

	default:
		for _, warning := range warnings {
			msgs = append(msgs, messageToMsg(warning))
		}
	}

	return msgs
}

func reportToStderr(options logger.StderrOptions, warnings []api.Message, err error) {
	log := logger.NewStderrLog(options)
	for _, msg := range msgsForResult(warnings, err) {
		log.AddMsg(msg)
	}
	log.Done()
}
