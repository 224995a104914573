package logs

import (
	"log/slog"
	"strings"

	"github.com/grafana/loki-client-go/loki"
	promconfig "github.com/prometheus/common/config"
	slogloki "github.com/samber/slog-loki/v3"

	"github.com/Alijeyrad/simorq_queue/config"
)

const lokiPushPath = "/loki/api/v1/push"

// newLokiHandler pushes records to Loki in batches through the official client.
func newLokiHandler(cfg *config.Config, level slog.Level) (slog.Handler, func(), error) {
	lc := cfg.Logging.Output.Loki

	url := strings.TrimRight(lc.Endpoint, "/")
	if !strings.HasSuffix(url, lokiPushPath) {
		url += lokiPushPath
	}

	clientCfg, err := loki.NewDefaultConfig(url)
	if err != nil {
		return nil, nil, err
	}
	if lc.Username != "" {
		clientCfg.Client.BasicAuth = &promconfig.BasicAuth{
			Username: lc.Username,
			Password: promconfig.Secret(lc.Password),
		}
	}

	client, err := loki.New(clientCfg)
	if err != nil {
		return nil, nil, err
	}

	h := slogloki.Option{
		Level:  level,
		Client: client,
	}.NewLokiHandler()

	return h, client.Stop, nil
}
