// seed-admin sets (or resets) the password of an account in the fleet
// snapshot. The default admin seeded on first boot has no password hash and
// cannot log in until this runs.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/technosupport/fleetwatch/internal/auth"
	"github.com/technosupport/fleetwatch/internal/config"
	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/store"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	email := flag.String("email", "admin@fleetwatch.local", "account to update")
	password := flag.String("password", "", "new password (or FLEETWATCH_ADMIN_PASSWORD)")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("FLEETWATCH_ADMIN_PASSWORD")
	}
	if *password == "" {
		log.Fatal("no password given: use -password or FLEETWATCH_ADMIN_PASSWORD")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	st := store.New(store.Options{Snapshots: data.NewRedisSnapshotRepository(rdb)})
	if err := st.Load(ctx); err != nil {
		log.Fatalf("store load error: %v", err)
	}

	u := st.FindUserByEmail(*email)
	if u == nil {
		log.Fatalf("no account with email %s", *email)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash error: %v", err)
	}
	if err := st.UpdateUser(ctx, &data.User{ID: u.ID, PasswordHash: hash}); err != nil {
		log.Fatalf("update error: %v", err)
	}

	log.Printf("password set for %s (%s)", *email, u.Role)
}
