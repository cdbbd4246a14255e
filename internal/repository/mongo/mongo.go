// Package mongo implements repository.Store on MongoDB.
//
// One Client is created at startup and shared by every request; the driver
// keeps its own connection pool underneath, so collections handed out here
// are safe for concurrent use.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sakif/agenda-api/internal/repository"
)

var (
	_ repository.Store      = (*Client)(nil)
	_ repository.Collection = (*collection)(nil)
)

// Options configures Connect.
type Options struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	Timeout     time.Duration // server selection and connect timeout
}

type Client struct {
	client *mongodriver.Client
	db     *mongodriver.Database
}

// Connect dials the server and pings the primary before returning, so a
// bad URI fails at startup instead of on the first request.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.Timeout)
		clientOpts.SetConnectTimeout(opts.Timeout)
	}

	client, err := mongodriver.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging %s: %w", opts.Database, err)
	}

	return &Client{client: client, db: client.Database(opts.Database)}, nil
}

func (c *Client) Collection(name string) repository.Collection {
	return &collection{coll: c.db.Collection(name)}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the pool, waiting for in-use connections up to ctx.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type collection struct {
	coll *mongodriver.Collection
}

func (c *collection) InsertOne(ctx context.Context, doc any) (primitive.ObjectID, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("mongo: unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

func (c *collection) FindOne(ctx context.Context, filter bson.D) (bson.Raw, error) {
	raw, err := c.coll.FindOne(ctx, filter).Raw()
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, repository.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *collection) Find(ctx context.Context, filter bson.D) ([]bson.Raw, error) {
	cur, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []bson.Raw
	for cur.Next(ctx) {
		// cur.Current is reused by the next call to Next.
		out = append(out, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter bson.D, set bson.M) (int64, error) {
	res, err := c.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter bson.D) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
