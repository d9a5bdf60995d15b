package config

// DefaultConfigYAML is the config file written by `crashlog init`.
const DefaultConfigYAML = `# crashlog configuration
#
# Every key can be overridden with a CRASHLOG_ environment variable,
# for example CRASHLOG_CRASH_GRACE_PERIOD=5s.

log:
  # debug, info, warn, error
  level: info
  # auto, text, json
  format: auto

crash:
  # Report directory name, created under storage_root.
  dir: crashlog
  # Defaults to the user cache directory.
  # storage_root: /var/lib/myapp
  # Wait between writing a report and exiting.
  grace_period: 3s
  exit_code: 1
  # Keep at most this many reports. 0 keeps all of them.
  max_reports: 0
  # Add the process environment to reports. Sensitive names are redacted.
  include_env: false
  # Redact tokens and credentials from report text.
  redact: true
  # redact_patterns:
  #   - 'ticket-[0-9]+'
  attribute_timeout: 500ms
  # Append fatal runtime errors to <dir>/runtime_crash.log.
  runtime_output: false
  # Prometheus textfile collector output.
  # metrics_textfile: /var/lib/node_exporter/crashlog.prom
`
