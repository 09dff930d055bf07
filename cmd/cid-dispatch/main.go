package main

import (
	"log"
	"os"

	"github.com/hamba/cmd"
	"gopkg.in/urfave/cli.v2"
)

import _ "github.com/joho/godotenv/autoload"

const (
	flagHTTPAddr = "http-addr"

	flagChannel       = "channel"
	flagKafkaBrokers  = "kafka-brokers"
	flagKafkaGroup    = "kafka-group"
	flagKafkaClientID = "kafka-client-id"
	flagRedisAddr     = "redis-addr"

	flagStore       = "store"
	flagPostgresDSN = "postgres-dsn"

	flagMinioEndpoint  = "minio-endpoint"
	flagMinioAccessKey = "minio-access-key"
	flagMinioSecretKey = "minio-secret-key"
	flagMinioBucket    = "minio-bucket"
	flagMinioPublicURL = "minio-public-url"

	flagBatchConcurrency = "batch-concurrency"
)

var version = "¯\\_(ツ)_/¯"

var commands = []*cli.Command{
	{
		Name:  "server",
		Usage: "Run the experiment dispatch server",
		Flags: cmd.Flags{
			&cli.StringFlag{
				Name:    flagHTTPAddr,
				Usage:   "The address for the HTTP server to bind on.",
				Value:   ":8080",
				EnvVars: []string{"HTTP_ADDR"},
			},
			&cli.StringFlag{
				Name:    flagChannel,
				Usage:   "The message channel to use: kafka or redis.",
				Value:   "kafka",
				EnvVars: []string{"CHANNEL"},
			},
			&cli.StringFlag{
				Name:    flagKafkaBrokers,
				Usage:   "The Kafka bootstrap broker list.",
				Value:   "localhost:9092",
				EnvVars: []string{"KAFKA_BROKERS"},
			},
			&cli.StringFlag{
				Name:    flagKafkaGroup,
				Usage:   "The Kafka consumer group id.",
				Value:   "cid-dispatch",
				EnvVars: []string{"KAFKA_GROUP_ID"},
			},
			&cli.StringFlag{
				Name:    flagKafkaClientID,
				Usage:   "The Kafka client id.",
				Value:   "cid-dispatch",
				EnvVars: []string{"KAFKA_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    flagRedisAddr,
				Usage:   "The Redis address, when the redis channel is used.",
				Value:   "localhost:6379",
				EnvVars: []string{"REDIS_ADDR"},
			},
			&cli.StringFlag{
				Name:    flagStore,
				Usage:   "The record store to use: postgres or memory.",
				Value:   "postgres",
				EnvVars: []string{"STORE"},
			},
			&cli.StringFlag{
				Name:    flagPostgresDSN,
				Usage:   "The PostgreSQL connection string.",
				EnvVars: []string{"POSTGRES_CONNECTION"},
			},
			&cli.StringFlag{
				Name:    flagMinioEndpoint,
				Usage:   "The MinIO endpoint for batch file archival. Empty disables archival.",
				EnvVars: []string{"MINIO_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    flagMinioAccessKey,
				Usage:   "The MinIO access key.",
				EnvVars: []string{"MINIO_ACCESS_KEY"},
			},
			&cli.StringFlag{
				Name:    flagMinioSecretKey,
				Usage:   "The MinIO secret key.",
				EnvVars: []string{"MINIO_SECRET_KEY"},
			},
			&cli.StringFlag{
				Name:    flagMinioBucket,
				Usage:   "The MinIO bucket for batch file archival.",
				Value:   "assets",
				EnvVars: []string{"MINIO_BUCKET"},
			},
			&cli.StringFlag{
				Name:    flagMinioPublicURL,
				Usage:   "The public base URL for archived files.",
				EnvVars: []string{"MINIO_URL"},
			},
			&cli.IntFlag{
				Name:    flagBatchConcurrency,
				Usage:   "The number of batch rows dispatched concurrently.",
				Value:   4,
				EnvVars: []string{"BATCH_CONCURRENCY"},
			},
		}.Merge(cmd.CommonFlags),
		Action: runServer,
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "cid-dispatch",
		Version:  version,
		Commands: commands,
	}
}

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
