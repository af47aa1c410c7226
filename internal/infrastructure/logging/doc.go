// Package logging provides structured logging for xComfort Core.
//
// Records are written by zerolog as one JSON object per line, or as a
// plain console line when format is "text". Each record carries the
// service name and build version.
//
// Configuration lives in the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
