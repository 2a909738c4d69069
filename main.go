package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/judgegodwins/bubble-royale/api"
	"github.com/judgegodwins/bubble-royale/career"
	"github.com/judgegodwins/bubble-royale/store"
	"github.com/judgegodwins/bubble-royale/tokens"
	"github.com/judgegodwins/bubble-royale/util"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const releaseVersion = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(newCmd().ExecuteContext(ctx))
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bubble-royale",
		Short:         "Game server for hand-tracked bubble popping, solo or head to head.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := util.LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			return serve(cmd.Context(), config)
		},
	}

	fs := cmd.Flags()

	fs.StringP("port", "p", "8080", "port to listen on (env: PORT)")
	fs.String("store", util.StoreRedis, "room store driver, redis or memory (env: STORE_DRIVER)")
	fs.BoolP("verbose", "v", false, "display additional output (env: VERBOSE)")

	return cmd
}

func serve(ctx context.Context, config *util.Config) error {
	var st store.Store
	var ledger career.Ledger

	switch config.StoreDriver {
	case util.StoreMemory:
		log.Println("using in-memory store, rooms will not be shared between instances")
		st = store.NewMemoryStore()
		ledger = career.NewMemoryLedger()
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddress,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		defer rdb.Close()

		// check redis connection status
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}

		st = store.NewRedisStore(rdb, config.RoomTTL, config.StoreTimeout)
		ledger = career.NewRedisLedger(rdb)
	}

	maker, err := tokens.NewMaker(config.TokenKind, config.TokenSecret)
	if err != nil {
		return err
	}

	server := api.NewServer(config, st, ledger, maker)

	return server.Start(ctx)
}
