// Package schemata provides a schema-driven universal data representation and
// a pluggable notation (wire-format) codec layer for stream-processing
// pipelines.
//
// - Portable structural schemas with assignability rules (schema/)
// - Runtime values bound to and validated against schemas (object/)
// - Notations: per-format plugins for native<->value conversion and serdes (notation/)
//   - json, avro, yaml, protobuf and a self-describing binary envelope
// - Configuration for the built-in registry (config/) and a CLI (cmd/schemata)
// - A stable error model via Error kinds and Issues (JSON Pointer, code, message)
//
// Design policy:
//   - Keep only the error model in the root package; schema, object and notation
//     implementations live in their own packages.
//   - Errors are raised synchronously at the point of detection; the core never
//     retries, logs policy decisions, or coerces silently.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	reg, _ := builtin.NewRegistry(config.Default(), logger)
//	serde, err := reg.SerdeFor("avro", sensorSchema, false)
//	data, err := serde.Serialize(value)
//	back, err := serde.Deserialize(data)
package schemata
