package services

import (
	"time"

	"github.com/fyrsmithlabs/managerd/internal/chat"
	"github.com/fyrsmithlabs/managerd/internal/dashboard"
	"github.com/fyrsmithlabs/managerd/internal/deadline"
	"github.com/fyrsmithlabs/managerd/internal/entity"
	"github.com/fyrsmithlabs/managerd/internal/gateway"
	"github.com/fyrsmithlabs/managerd/internal/kvstore"
	"github.com/fyrsmithlabs/managerd/internal/notify"
	"github.com/fyrsmithlabs/managerd/internal/session"
)

// Registry provides access to all managerd services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Store() kvstore.Store
	Gateway() *gateway.Service
	Notifier() *notify.Notifier
	Push() *notify.PushChannel
	Entities() *entity.Store
	Monitor() *deadline.Monitor
	Chat() *chat.Orchestrator
	Session() *session.Gate
	Selection() *dashboard.Selection
	AgencyName() string
	Location() *time.Location
}

// Options configures the registry with service instances.
type Options struct {
	Store      kvstore.Store
	Gateway    *gateway.Service
	Notifier   *notify.Notifier
	Push       *notify.PushChannel
	Entities   *entity.Store
	Monitor    *deadline.Monitor
	Chat       *chat.Orchestrator
	Session    *session.Gate
	Selection  *dashboard.Selection
	AgencyName string
	Location   *time.Location
}

// registry is the concrete implementation of Registry.
type registry struct {
	store     kvstore.Store
	gateway   *gateway.Service
	notifier  *notify.Notifier
	push      *notify.PushChannel
	entities  *entity.Store
	monitor   *deadline.Monitor
	chat      *chat.Orchestrator
	session   *session.Gate
	selection *dashboard.Selection
	agency    string
	loc       *time.Location
}

// NewRegistry creates a new service registry. A nil selection or location
// is replaced with an empty selection and time.Local.
func NewRegistry(opts Options) Registry {
	if opts.Selection == nil {
		opts.Selection = dashboard.NewSelection()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &registry{
		store:     opts.Store,
		gateway:   opts.Gateway,
		notifier:  opts.Notifier,
		push:      opts.Push,
		entities:  opts.Entities,
		monitor:   opts.Monitor,
		chat:      opts.Chat,
		session:   opts.Session,
		selection: opts.Selection,
		agency:    opts.AgencyName,
		loc:       opts.Location,
	}
}

func (r *registry) Store() kvstore.Store            { return r.store }
func (r *registry) Gateway() *gateway.Service       { return r.gateway }
func (r *registry) Notifier() *notify.Notifier      { return r.notifier }
func (r *registry) Push() *notify.PushChannel       { return r.push }
func (r *registry) Entities() *entity.Store         { return r.entities }
func (r *registry) Monitor() *deadline.Monitor      { return r.monitor }
func (r *registry) Chat() *chat.Orchestrator        { return r.chat }
func (r *registry) Session() *session.Gate          { return r.session }
func (r *registry) Selection() *dashboard.Selection { return r.selection }
func (r *registry) AgencyName() string              { return r.agency }
func (r *registry) Location() *time.Location        { return r.loc }
