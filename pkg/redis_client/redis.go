package redis_client

import (
	"context"
	"strconv"

	"github.com/gtfskit/gtfskit/pkg/util"
	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["GTFSKIT_REDIS_ADDRESS"] != "" {
		address = env["GTFSKIT_REDIS_ADDRESS"]
	}

	if env["GTFSKIT_REDIS_PASSWORD"] != "" {
		password = env["GTFSKIT_REDIS_PASSWORD"]
	}

	if env["GTFSKIT_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["GTFSKIT_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	if password == "" {
		Client = redis.NewClient(&redis.Options{
			Addr: address,
			DB:   database,
		})
	} else {
		Client = redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       database,
		})
	}

	return Client.Ping(context.Background()).Err()
}
