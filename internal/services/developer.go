package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vimoda/web3-oauth-api/internal/config"
	"github.com/vimoda/web3-oauth-api/internal/models"
)

var (
	ErrUnknownAPIKey = errors.New("unknown API key")
	ErrDatabaseError = errors.New("database error")
)

// DeveloperService looks up registered applications by API key in MongoDB
type DeveloperService struct {
	client     *mongo.Client
	collection *mongo.Collection
	config     *config.MongoDBConfig
}

// NewDeveloperService creates a new developer lookup service with pooled
// MongoDB connections
func NewDeveloperService(cfg *config.MongoDBConfig) (*DeveloperService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	clientOptions.SetMinPoolSize(cfg.MaxPoolSize / 4)
	clientOptions.SetMaxConnIdleTime(30 * time.Minute)
	clientOptions.SetConnectTimeout(cfg.ConnectTimeout)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)
	clientOptions.SetReadPreference(readpref.SecondaryPreferred())
	clientOptions.SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	collection := client.Database(cfg.Database).Collection(cfg.DeveloperCollection)

	// Create index on apiKey for fast lookups; an already-existing index is fine
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "apiKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = collection.Indexes().CreateOne(ctx, indexModel)

	return &DeveloperService{
		client:     client,
		collection: collection,
		config:     cfg,
	}, nil
}

// FindByAPIKey resolves a developer record from an application API key
func (d *DeveloperService) FindByAPIKey(ctx context.Context, apiKey string) (*models.Developer, error) {
	if apiKey == "" {
		return nil, ErrUnknownAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var developer models.Developer
	err := d.collection.FindOne(ctx, bson.M{"apiKey": apiKey}).Decode(&developer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUnknownAPIKey
		}
		return nil, ErrDatabaseError
	}

	return &developer, nil
}

// Ping checks MongoDB connectivity
func (d *DeveloperService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return d.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (d *DeveloperService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return d.client.Disconnect(ctx)
}
