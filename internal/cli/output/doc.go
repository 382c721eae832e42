// Package output renders command results for the securestore CLI.
//
//   - formatter.go: Formatter interface, format parsing and factory
//   - table.go: key/value and list tables (text/tabwriter)
//   - json.go: indented JSON
//   - yaml.go: YAML through gopkg.in/yaml.v3, honouring json tags
//
// Values of type json.RawMessage are stored payloads; every formatter
// prints them as JSON rather than as byte slices.
package output
