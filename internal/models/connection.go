// Package models holds the connection and policy descriptors that travel with
// an archive between environments.
package models

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// ServerConnectionTag is the element tag of a ServerConnectionInfo.
const ServerConnectionTag = "PSXServerConnectionInfo"

// ConnectionParams are the constructor arguments for a ServerConnectionInfo.
type ConnectionParams struct {
	Server       string `arg:"server" validate:"required,xmltext"`
	Port         int    `arg:"port" validate:"gt=0"`
	UserID       string `arg:"userid" validate:"required,xmltext"`
	Password     string `arg:"password" validate:"xmltext"`
	PwdEncrypted bool   `arg:"isPwdEncrypted"`
}

// ServerConnectionInfo describes how to reach a target server. The password
// is kept exactly as supplied; whether it is encrypted is only recorded.
type ServerConnectionInfo struct {
	server       string
	port         int
	userID       string
	password     string
	pwdEncrypted bool
}

// NewServerConnectionInfo validates p and returns the descriptor.
func NewServerConnectionInfo(p ConnectionParams) (*ServerConnectionInfo, error) {
	if err := contract.ValidateStruct(p); err != nil {
		return nil, err
	}
	return &ServerConnectionInfo{
		server:       p.Server,
		port:         p.Port,
		userID:       p.UserID,
		password:     p.Password,
		pwdEncrypted: p.PwdEncrypted,
	}, nil
}

func (c *ServerConnectionInfo) Server() string       { return c.server }
func (c *ServerConnectionInfo) Port() int            { return c.port }
func (c *ServerConnectionInfo) UserID() string       { return c.userID }
func (c *ServerConnectionInfo) Password() string     { return c.password }
func (c *ServerConnectionInfo) IsPwdEncrypted() bool { return c.pwdEncrypted }

// Address returns host:port.
func (c *ServerConnectionInfo) Address() string {
	return fmt.Sprintf("%s:%d", c.server, c.port)
}

// MaskedPassword returns a fixed mask for a non-empty password.
func (c *ServerConnectionInfo) MaskedPassword() string {
	if c.password == "" {
		return ""
	}
	return "********"
}

func (c *ServerConnectionInfo) Equal(o *ServerConnectionInfo) bool {
	if c == nil || o == nil {
		return c == o
	}
	return *c == *o
}

// Hash is consistent with Equal.
func (c *ServerConnectionInfo) Hash() uint64 {
	return contract.Hash(c.server, strconv.Itoa(c.port), c.userID, c.password, contract.HashBool(c.pwdEncrypted))
}

func (c *ServerConnectionInfo) String() string {
	return fmt.Sprintf("%s@%s password=%s", c.userID, c.Address(), c.MaskedPassword())
}

func (c *ServerConnectionInfo) ToXML() *etree.Element {
	el := etree.NewElement(ServerConnectionTag)
	el.CreateAttr("server", c.server)
	contract.SetInt(el, "port", c.port)
	el.CreateAttr("userid", c.userID)
	el.CreateAttr("password", c.password)
	contract.SetBool(el, "isPwdEncrypted", c.pwdEncrypted)
	return el
}

// DecodeServerConnectionInfo reads a PSXServerConnectionInfo element. All
// five attributes must be present; password may be empty.
func DecodeServerConnectionInfo(el *etree.Element) (*ServerConnectionInfo, error) {
	if err := contract.CheckTag(el, ServerConnectionTag); err != nil {
		return nil, err
	}
	var p ConnectionParams
	var err error
	if p.Server, err = contract.Attr(el, "server"); err != nil {
		return nil, err
	}
	if p.Port, err = contract.IntAttr(el, "port"); err != nil {
		return nil, err
	}
	if p.UserID, err = contract.Attr(el, "userid"); err != nil {
		return nil, err
	}
	if p.Password, err = contract.Attr(el, "password"); err != nil {
		return nil, err
	}
	if p.PwdEncrypted, err = contract.BoolAttr(el, "isPwdEncrypted"); err != nil {
		return nil, err
	}
	c, err := NewServerConnectionInfo(p)
	if err != nil {
		return nil, contract.AttributeError(el, err)
	}
	return c, nil
}

// ServerStore is an in-memory thread-safe store for target server
// connections.
type ServerStore struct {
	mu      sync.RWMutex
	servers map[string]*ServerConnectionInfo
}

// NewServerStore creates an empty server store.
func NewServerStore() *ServerStore {
	return &ServerStore{servers: make(map[string]*ServerConnectionInfo)}
}

// Create adds a connection and returns the UUID assigned to it.
func (s *ServerStore) Create(c *ServerConnectionInfo) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.servers[id] = c
	return id
}

// Get returns a connection by ID, or nil if not found.
func (s *ServerStore) Get(id string) *ServerConnectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers[id]
}

// StoredServer pairs a connection with its store ID.
type StoredServer struct {
	ID   string
	Info *ServerConnectionInfo
}

// List returns all connections ordered by address, then ID.
func (s *ServerStore) List() []StoredServer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]StoredServer, 0, len(s.servers))
	for id, c := range s.servers {
		result = append(result, StoredServer{ID: id, Info: c})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Info.Address(), result[j].Info.Address()
		if a != b {
			return a < b
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Delete removes a connection by ID.
func (s *ServerStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[id]; !ok {
		return false
	}
	delete(s.servers, id)
	return true
}
