//go:build go1.18

package js_parser

import (
	"testing"

	"github.com/jspipe/jspipe/internal/config"
	"github.com/jspipe/jspipe/internal/logger"
	"github.com/jspipe/jspipe/internal/test"
)

func FuzzParseJS(f *testing.F) {
	f.Add([]byte(`var x = 1;`))
	f.Add([]byte(`export default function() {}`))
	f.Add([]byte(`import { foo } from 'bar'`))
	f.Add([]byte(`class Foo { x = 1 }`))
	f.Add([]byte(`async function* gen() { yield await 1 }`))
	f.Add([]byte(`const x = a?.b ?? c`))
	f.Add([]byte(`let a = ; b(`))

	f.Fuzz(func(t *testing.T, data []byte) {
		source := test.SourceForTest(string(data))
		Parse(logger.NewDeferLog(), source, config.Options{IsModule: true})
		Parse(logger.NewDeferLog(), source, config.Options{Recover: true})
	})
}
