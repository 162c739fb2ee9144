// Package mongo implementa los repositorios de dominio sobre MongoDB.
//
// El Client se construye una sola vez al arrancar el proceso y se inyecta
// en los services; no hay conexión global cacheada.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	accountsCollection = "accounts"
	codesCollection    = "verification_codes"
)

// Config contiene los parámetros de conexión.
type Config struct {
	URI             string
	Database        string
	MaxPoolSize     uint64
	ConnectTimeout  time.Duration
	SelectorTimeout time.Duration
}

// Client envuelve el pool de conexiones del driver y expone los repositorios.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect abre el pool y verifica conectividad con un ping al primario.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo: uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo: database is required")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.SelectorTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.SelectorTimeout)
	}

	cctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	mc, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := mc.Ping(cctx, readpref.Primary()); err != nil {
		_ = mc.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Client{client: mc, db: mc.Database(cfg.Database)}, nil
}

// Ping verifica la conexión (usado por /readyz).
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close cierra el pool.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Accounts devuelve el repositorio de cuentas.
func (c *Client) Accounts() *AccountStore {
	return &AccountStore{coll: c.db.Collection(accountsCollection)}
}

// Codes devuelve el repositorio de códigos de verificación.
func (c *Client) Codes() *CodeStore {
	return &CodeStore{coll: c.db.Collection(codesCollection)}
}

// EnsureIndexes crea los índices de los que dependen las garantías de
// unicidad y consumo único. Es idempotente.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if err := c.Accounts().EnsureIndexes(ctx); err != nil {
		return err
	}
	return c.Codes().EnsureIndexes(ctx)
}
