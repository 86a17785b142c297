package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/dht"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/file"
	grpcAdapter "github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/grpc"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/influx"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/mcp3008"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/mqtt"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/sheets"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/adapters/sqlite"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/config"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/ports"
	"github.com/quentinrf/plant-monitor/services/climate-logger/pkg/tlsconfig"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Read configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, using info")
	}

	log.Info().Str("sensor", cfg.SensorType).Str("sink", cfg.SinkType).Msg("starting climate logger")

	var done cleanup
	defer done.run()

	source, err := newSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sensor")
	}
	done.add(func() { source.Close() })

	sink, err := newSink(cfg)
	if err != nil {
		done.run()
		log.Fatal().Err(err).Msg("failed to initialize sink")
	}

	logger := ports.NewSensorLogger(source, sink, ports.Options{
		Interval:      cfg.PollInterval,
		Cooldown:      cfg.ReadCooldown,
		WriteBackoff:  cfg.WriteBackoff,
		MaxReconnects: cfg.MaxReconnects,
	}, os.Stdout)

	if cfg.StatusAddr != "" {
		status, err := startStatusServer(cfg)
		if err != nil {
			done.run()
			log.Fatal().Err(err).Msg("failed to start status server")
		}
		done.add(status.Stop)
		logger.SetStatusReporter(status)
	}

	// Stop on interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done.add(stop)

	if err := logger.Run(ctx); err != nil {
		done.run()
		log.Fatal().Err(err).Msg("sensor logger stopped")
	}

	fmt.Println("Program has quit")
}

// cleanup runs shutdown steps in reverse order of registration.
// log.Fatal skips deferred calls, so fatal paths run it by hand.
type cleanup struct {
	steps []func()
}

func (c *cleanup) add(step func()) {
	c.steps = append(c.steps, step)
}

// run executes every pending step once
func (c *cleanup) run() {
	for i := len(c.steps) - 1; i >= 0; i-- {
		c.steps[i]()
	}
	c.steps = nil
}

func newSource(cfg config.Config) (ports.SensorSource, error) {
	var source ports.SensorSource
	switch cfg.SensorType {
	case config.SensorDHT:
		s, err := dht.NewSensor(cfg.SensorKind, cfg.SensorPin, cfg.ReadRetries)
		if err != nil {
			return nil, err
		}
		source = s
		log.Info().Str("kind", cfg.SensorKind).Str("pin", dht.PinName(cfg.SensorPin)).Msg("initialized DHT sensor")
	default:
		source = mock.NewFakeSensor(21.0, 45.0, 2.0, 0.1, 1) // 21±2 °C, 45±2 %RH, 10% dropouts
		log.Info().Msg("initialized mock sensor")
	}

	if !cfg.MoistureEnabled {
		return source, nil
	}
	moisture, err := mcp3008.Open(cfg.MoistureSPIPort, cfg.MoistureChannel)
	if err != nil {
		source.Close()
		return nil, err
	}
	log.Info().Int("channel", cfg.MoistureChannel).Msg("initialized moisture sensor")
	return ports.WithMoisture(source, moisture), nil
}

func newSink(cfg config.Config) (domain.Sink, error) {
	switch cfg.SinkType {
	case config.SinkSheets:
		return sheets.NewSink(sheets.Config{
			CredentialsFile: cfg.CredentialsFile,
			SpreadsheetName: cfg.SheetName,
			SpreadsheetID:   cfg.SheetID,
		}), nil
	case config.SinkSQLite:
		return sqlite.NewSink(cfg.DBPath), nil
	case config.SinkInflux:
		return influx.NewSink(influx.Config{
			URL:         cfg.InfluxURL,
			Token:       cfg.InfluxToken,
			Org:         cfg.InfluxOrg,
			Bucket:      cfg.InfluxBucket,
			Measurement: cfg.InfluxMeasurement,
			SensorTag:   strings.ToLower(cfg.SensorKind),
		}), nil
	case config.SinkMQTT:
		mc := mqtt.Config{
			BrokerURL: cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			QoS:       1,
		}
		if cfg.TLSEnabled() {
			tlsCfg, err := tlsconfig.LoadClientTLS(cfg.TLSCert, cfg.TLSKey, cfg.TLSCA)
			if err != nil {
				return nil, fmt.Errorf("failed to load MQTT TLS config: %w", err)
			}
			mc.TLS = tlsCfg
		}
		return mqtt.NewSink(mc), nil
	case config.SinkMemory:
		return memory.NewSink(), nil
	default:
		return file.NewSink(cfg.FilePath), nil
	}
}

func startStatusServer(cfg config.Config) (*grpcAdapter.StatusServer, error) {
	// Configure TLS if certificates are provided
	var serverOpts []grpc.ServerOption
	if cfg.TLSEnabled() {
		tlsCfg, err := tlsconfig.LoadServerTLS(cfg.TLSCert, cfg.TLSKey, cfg.TLSCA)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsCfg)))
		log.Info().Msg("mTLS enabled")
	} else {
		log.Warn().Msg("TLS_CERT not set, status server runs without TLS")
	}

	listener, err := net.Listen("tcp", cfg.StatusAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.StatusAddr, err)
	}

	status := grpcAdapter.NewStatusServer(serverOpts...)
	go func() {
		if err := status.Serve(listener); err != nil {
			log.Error().Err(err).Msg("status server stopped")
		}
	}()
	return status, nil
}
