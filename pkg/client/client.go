package client

import (
	"context"
	"time"

	"atelier/pkg/logger"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/api/option"
)

const shutdownTimeout = 10 * time.Second

// Client holds the process-wide backend connections. Only the ones a service
// asks for are populated.
type Client struct {
	Mongo     *mongo.Client
	Firebase  *firebase.App
	Firestore *firestore.Client
	Auth      *auth.Client
	Redis     *redis.Client
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

// SetFirebase initialises the Firebase app and its Firestore client, and the
// Auth client when withAuth is set. Credentials come from the raw service
// account JSON when given, otherwise from application default credentials.
func (c *Client) SetFirebase(log *logger.Logger, projectID, serviceAccountJSON string, withAuth bool) {
	ctx := context.Background()

	opts := []option.ClientOption{}
	if serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		log.Fatal("Failed to initialise Firebase app", "error", err, "project_id", projectID)
	}
	c.Firebase = app

	fs, err := app.Firestore(ctx)
	if err != nil {
		log.Fatal("Failed to create Firestore client", "error", err)
	}
	c.Firestore = fs

	if withAuth {
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatal("Failed to create Firebase Auth client", "error", err)
		}
		c.Auth = authClient
	}

	log.Info("Successfully initialised Firebase", "project_id", projectID, "auth", withAuth)
}

func (c *Client) SetRedis(log *logger.Logger, redisURL string, connTimeout time.Duration) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL", "error", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping Redis", "error", err)
	}

	log.Info("Successfully connected to Redis", "addr", opts.Addr)
	c.Redis = rdb
}

func (c *Client) GracefulShutdown(log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			log.Error("Failed to disconnect MongoDB", "error", err)
		}
	}
	if c.Firestore != nil {
		if err := c.Firestore.Close(); err != nil {
			log.Error("Failed to close Firestore client", "error", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}
}
