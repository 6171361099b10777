package email

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FerDeGante/Eventora-sub000/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		port := 587
		if p := config["port"]; p != "" {
			var err error
			if port, err = strconv.Atoi(p); err != nil {
				return nil, fmt.Errorf("email: invalid port %q", p)
			}
		}
		var to []string
		for _, addr := range strings.Split(config["to"], ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				to = append(to, addr)
			}
		}
		return NewNotifier(SMTPConfig{
			Host:     config["host"],
			Port:     port,
			From:     config["from"],
			Password: config["password"],
			To:       to,
		}), nil
	})
}
