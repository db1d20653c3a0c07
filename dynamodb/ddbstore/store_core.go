package ddbstore

import (
	"context"
	"fmt"

	"github.com/acksell/kanban/dynamodb/ddbiface"
	"github.com/acksell/kanban/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// MaxBatchWriteItems is the DynamoDB limit of write requests per BatchWriteItem call.
const MaxBatchWriteItems = 25

// Store is a DynamoDB-compatible store backed by BadgerDB.
// Every operation runs in a single badger transaction, so items and their
// GSI entries are always updated together.
type Store struct {
	db     *badger.DB
	tables map[string]*tableSchema
}

var _ ddbiface.AWSDynamoClientV2 = (*Store)(nil)

type tableSchema struct {
	definition table.TableDefinition
	gsis       []*gsiSchema
}

func (t *tableSchema) encoder() *badgerKeyEncoder {
	return &badgerKeyEncoder{
		tableName: t.definition.Name,
		keyDefs:   t.definition.KeyDefinitions,
	}
}

func (t *tableSchema) gsi(name string) (*gsiSchema, bool) {
	for _, g := range t.gsis {
		if g.definition.Name == name {
			return g, true
		}
	}
	return nil, false
}

type gsiSchema struct {
	definition table.GSIDefinition
	enc        *badgerKeyEncoder
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	// *logrus.Logger satisfies this interface.
	Logger badger.Logger
}

// New creates a new BadgerDB-backed DynamoDB store serving the given tables.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	tables := make(map[string]*tableSchema, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("table definition without a name")
		}
		if _, dup := tables[def.Name]; dup {
			return nil, fmt.Errorf("table %s defined twice", def.Name)
		}
		schema := &tableSchema{definition: def}
		for _, g := range def.GSIs {
			schema.gsis = append(schema.gsis, &gsiSchema{
				definition: g,
				enc: &badgerKeyEncoder{
					tableName: def.Name,
					indexName: g.Name,
					keyDefs:   g.KeyDefinitions,
					baseKeys:  def.KeyDefinitions,
				},
			})
		}
		tables[def.Name] = schema
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{
		db:     db,
		tables: tables,
	}, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getTable(tableName *string) (*tableSchema, error) {
	if tableName == nil || *tableName == "" {
		return nil, validationError("table name is required")
	}
	schema, ok := s.tables[*tableName]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: ptrStr("Requested resource not found: Table: " + *tableName + " not found")}
	}
	return schema, nil
}

// Used in query/scan to get the key encoder of the table or one of its GSIs.
func (s *Store) getBadgerKeyEncoder(tableName *string, indexName *string) (*badgerKeyEncoder, error) {
	schema, err := s.getTable(tableName)
	if err != nil {
		return nil, err
	}
	if indexName == nil || *indexName == "" {
		return schema.encoder(), nil
	}
	gsi, ok := schema.gsi(*indexName)
	if !ok {
		return nil, validationError(fmt.Sprintf("the table does not have the specified index: %s", *indexName))
	}
	return gsi.enc, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ddbstore: %w", err)
	}
	return nil
}
