package configuration

// defaultConfig loaded anyway when a daemon starts
// may be extended/replaced by user-provided config later
var defaultConfig = []byte(`
publisher:
  host: ""
  port: 1883
  transport: tcp # tcp or ws
health:
  enabled: true
  port: 8080
topics:
  - system/
`)
