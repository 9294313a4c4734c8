package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "gateway":
		return gatewayTemplate, nil
	case "probe":
		return probeTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const gatewayTemplate = `[gateway]
listen = ":7420"
admin_listen = ":7421"
header = "#sq#"
secret = "change-me"
search_bound = 100
read_buffer = 4096
debug = false
cors_origins = ["http://localhost:3000"]

[gateway.tls]
enabled = false
cert_file = ""
key_file = ""

[uplink]
enabled = false
url = "nats://127.0.0.1:4222"
subject_prefix = "seqwire"

[registry]
enabled = false
addr = "127.0.0.1:6379"
password = ""
db = 0
ttl = "300s"
`

const probeTemplate = `addr = "localhost:7420"
header = "#sq#"
secret = "change-me"
heartbeat_every = "0s"
`
