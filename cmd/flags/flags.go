package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/noc-monitor-publisher/common"
	"github.com/ruteri/noc-monitor-publisher/cryptoutils"
	"github.com/ruteri/noc-monitor-publisher/httpserver"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// LoadTLSIdentity reads the TLS flags. hosts name the certificate subjects
// when an ephemeral certificate is requested.
func LoadTLSIdentity(cCtx *cli.Context, hosts ...string) (*cryptoutils.TLSIdentity, error) {
	return cryptoutils.LoadTLSIdentity(cryptoutils.TLSMaterial{
		CertFile:  cCtx.String(TLSCertFlag.Name),
		KeyFile:   cCtx.String(TLSKeyFlag.Name),
		CAFile:    cCtx.String(TLSCAFlag.Name),
		Ephemeral: cCtx.Bool(TLSEphemeralFlag.Name),
		Hosts:     hosts,
	})
}

var TLSCertFlag = &cli.StringFlag{
	Name:    "tls-cert",
	EnvVars: []string{"NOC_MONITOR_TLS_CERT"},
	Usage:   "PEM certificate chain presented to peers",
}
var TLSKeyFlag = &cli.StringFlag{
	Name:    "tls-key",
	EnvVars: []string{"NOC_MONITOR_TLS_KEY"},
	Usage:   "PEM private key of --tls-cert",
}
var TLSCAFlag = &cli.StringFlag{
	Name:    "tls-ca",
	EnvVars: []string{"NOC_MONITOR_TLS_CA"},
	Usage:   "PEM certificates peers are verified against. Servers require client certificates when set",
}
var TLSEphemeralFlag = &cli.BoolFlag{
	Name:  "tls-ephemeral",
	Value: false,
	Usage: "generate a throwaway self-signed certificate instead of reading --tls-cert/--tls-key (development only)",
}

var TLSFlags = []cli.Flag{
	TLSCertFlag,
	TLSKeyFlag,
	TLSCAFlag,
	TLSEphemeralFlag,
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to stay unready on shutdown before the servers stop",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
