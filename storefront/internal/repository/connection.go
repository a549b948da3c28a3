package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoOptions configures the cart state connection. Zero values fall back to
// the defaults below.
type MongoOptions struct {
	URI         string
	Database    string
	AppName     string
	MaxPoolSize uint64
	MinPoolSize uint64
	PingTimeout time.Duration
}

const (
	defaultMongoAppName     = "storefront"
	defaultMongoMaxPoolSize = 100
	defaultMongoPingTimeout = 5 * time.Second
)

func (o MongoOptions) withDefaults() MongoOptions {
	if o.AppName == "" {
		o.AppName = defaultMongoAppName
	}
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = defaultMongoMaxPoolSize
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultMongoPingTimeout
	}
	return o
}

func (o MongoOptions) validate() error {
	if o.URI == "" {
		return errors.New("mongo uri is required")
	}
	if o.Database == "" {
		return errors.New("mongo database name is required")
	}
	if o.MinPoolSize > o.MaxPoolSize {
		return fmt.Errorf("mongo min pool size %d exceeds max pool size %d", o.MinPoolSize, o.MaxPoolSize)
	}
	return nil
}

// ConnectMongoDB dials MongoDB and checks the primary is reachable. The
// client is disconnected again when that check fails.
func ConnectMongoDB(ctx context.Context, opts MongoOptions) (*mongo.Database, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetAppName(opts.AppName).
		SetConnectTimeout(2 * opts.PingTimeout).
		SetServerSelectionTimeout(opts.PingTimeout).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetMinPoolSize(opts.MinPoolSize).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return client.Database(opts.Database), nil
}
