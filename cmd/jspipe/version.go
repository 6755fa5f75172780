package main

const jspipeVersion = "0.1.0"
