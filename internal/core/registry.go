package core

import (
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/vovakirdan/relaychat/internal/utils"
)

// DefaultUsername is used when a registry is created without a display name default.
const DefaultUsername = "Anonymous"

// Registry maps live connections to display names. It is the only authority
// on who is currently reachable.
type Registry struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	defaultName string
}

// NewRegistry creates an empty registry; new clients get defaultName.
func NewRegistry(defaultName string) *Registry {
	defaultName = strings.TrimSpace(defaultName)
	if defaultName == "" {
		defaultName = DefaultUsername
	}
	return &Registry{
		clients:     make(map[string]*Client),
		defaultName: defaultName,
	}
}

// Register stores conn under a fresh client id and returns the id.
func (r *Registry) Register(conn Conn) string {
	id := utils.NewClientID()

	r.mu.Lock()
	r.clients[id] = &Client{ID: id, Name: r.defaultName, Conn: conn}
	r.mu.Unlock()

	return id
}

// Rename sets the display name of id to the trimmed name. Unknown ids and
// blank names leave the registry untouched. Returns true if a name was set.
func (r *Registry) Rename(id, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok {
		return false
	}
	client.Name = name
	return true
}

// Deregister removes id. Removing an absent id is a no-op.
func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[id]; !ok {
		return false
	}
	delete(r.clients, id)
	return true
}

// Get returns a copy of the client registered under id.
func (r *Registry) Get(id string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return Client{}, false
	}
	return *client, true
}

// Name returns the display name of id, or the default name if id is unknown.
func (r *Registry) Name(id string) string {
	if client, ok := r.Get(id); ok {
		return client.Name
	}
	return r.defaultName
}

// ForEach calls visit for every client in a snapshot taken at call time.
// Clients registered or removed while visiting do not affect the iteration.
func (r *Registry) ForEach(visit func(id, name string, conn Conn)) {
	for _, client := range r.snapshot() {
		visit(client.ID, client.Name, client.Conn)
	}
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.clients, func(_ string, client *Client) Client {
		return *client
	})
}
