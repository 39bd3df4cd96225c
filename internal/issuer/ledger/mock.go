package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"proofpass/pkg/domain"
)

const firstMockCollection = 1000000

type mockUnit struct {
	contentRef domain.ContentID
	owner      string
}

type mockCollection struct {
	name   string
	symbol string
	units  []mockUnit
}

// Mock is a deterministic in-process ledger. Collection ids are "0.0.<n>"
// counting up from 1000000 and serials count up from 1 in each collection.
// Minting into a collection the mock never created is allowed so placeholder
// collections keep working in development.
type Mock struct {
	treasury string

	mu           sync.Mutex
	next         int64
	collections  map[domain.CollectionID]*mockCollection
	unassociated map[string]struct{}
}

// MockOption configures a Mock ledger.
type MockOption func(*Mock)

// WithUnassociated marks recipients whose transfers fail with
// ErrRecipientNotAssociated.
func WithUnassociated(wallets ...string) MockOption {
	return func(m *Mock) {
		for _, w := range wallets {
			if w = strings.TrimSpace(w); w != "" {
				m.unassociated[w] = struct{}{}
			}
		}
	}
}

// WithTreasury sets the owner of freshly minted units.
func WithTreasury(account string) MockOption {
	return func(m *Mock) {
		m.treasury = account
	}
}

func NewMock(opts ...MockOption) *Mock {
	m := &Mock{
		treasury:     "0.0.treasury",
		next:         firstMockCollection,
		collections:  make(map[domain.CollectionID]*mockCollection),
		unassociated: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mock) CreateCollection(_ context.Context, name, symbol string) (domain.CollectionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := domain.CollectionID(fmt.Sprintf("0.0.%d", m.next))
	m.next++
	m.collections[id] = &mockCollection{name: name, symbol: symbol}
	return id, nil
}

func (m *Mock) Mint(_ context.Context, collectionID domain.CollectionID, contentRef domain.ContentID) (domain.Serial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collectionID]
	if !ok {
		c = &mockCollection{}
		m.collections[collectionID] = c
	}
	c.units = append(c.units, mockUnit{contentRef: contentRef, owner: m.treasury})
	return domain.Serial(strconv.Itoa(len(c.units))), nil
}

func (m *Mock) Transfer(_ context.Context, collectionID domain.CollectionID, serial domain.Serial, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrInvalidRecipient
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	unit, err := m.unitLocked(collectionID, serial)
	if err != nil {
		return err
	}
	if _, blocked := m.unassociated[to]; blocked {
		return fmt.Errorf("transfer %s/%s to %s: %w", collectionID, serial, to, ErrRecipientNotAssociated)
	}
	unit.owner = to
	return nil
}

// Owner returns the current holder of a minted unit.
func (m *Mock) Owner(_ context.Context, collectionID domain.CollectionID, serial domain.Serial) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unit, err := m.unitLocked(collectionID, serial)
	if err != nil {
		return "", err
	}
	return unit.owner, nil
}

// Minted reports how many units exist in a collection.
func (m *Mock) Minted(collectionID domain.CollectionID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[collectionID]; ok {
		return len(c.units)
	}
	return 0
}

func (m *Mock) unitLocked(collectionID domain.CollectionID, serial domain.Serial) (*mockUnit, error) {
	c, ok := m.collections[collectionID]
	if !ok {
		return nil, ErrUnknownSerial
	}
	n, err := strconv.Atoi(serial.String())
	if err != nil || n < 1 || n > len(c.units) {
		return nil, ErrUnknownSerial
	}
	return &c.units[n-1], nil
}
