// Package datastore binds a configuration store to its edit engine and exposes the operations
// a NETCONF server performs on a named datastore: edit-config, get-config, lock and unlock.
package datastore

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/damianoneill/ncstore/datastore/edit"
	"github.com/damianoneill/ncstore/datastore/store"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/schema"
)

// Well known datastore names.
const (
	Running   = "running"
	Candidate = "candidate"
)

// NoSession identifies edits made by the system rather than by a NETCONF session.
const NoSession uint64 = 0

// Datastore is one named configuration datastore. Edits are serialised; reads are not, and may
// observe an edit that is still being applied.
type Datastore struct {
	name   string
	oracle schema.Oracle
	store  *store.Store
	engine *edit.Engine

	// wmu admits one edit at a time.
	wmu sync.Mutex

	lmu   sync.Mutex
	owner uint64
}

// New delivers an empty datastore. Store and edit trace hooks are taken from ctx.
func New(ctx context.Context, name string, oracle schema.Oracle) *Datastore {
	s := store.New(ctx, name, oracle)
	return &Datastore{name: name, oracle: oracle, store: s, engine: edit.NewEngine(ctx, s)}
}

// Name delivers the datastore name.
func (d *Datastore) Name() string {
	return d.name
}

// Oracle delivers the schema the datastore is typed by.
func (d *Datastore) Oracle() schema.Oracle {
	return d.oracle
}

// Store delivers the underlying store.
func (d *Datastore) Store() *store.Store {
	return d.store
}

// Edit applies a parsed edit on behalf of session. It fails with lock-denied while another
// session holds the datastore lock.
func (d *Datastore) Edit(ctx context.Context, session uint64, root *edit.EditNode) (*edit.ChangeSet, error) {
	if err := d.checkLock(session); err != nil {
		return nil, err
	}
	d.wmu.Lock()
	defer d.wmu.Unlock()
	// The lock may have been taken while this edit waited for the one in flight.
	if err := d.checkLock(session); err != nil {
		return nil, err
	}
	return d.engine.Apply(ctx, root)
}

// EditConfig parses the XML configuration in r and applies it as Edit does. An empty defaultOp
// means merge.
func (d *Datastore) EditConfig(ctx context.Context, session uint64, r io.Reader, defaultOp edit.Operation) (*edit.ChangeSet, error) {
	root, err := edit.Parse(d.oracle, r, defaultOp)
	if err != nil {
		return nil, err
	}
	return d.Edit(ctx, session, root)
}

// EditElements applies configuration content already decoded from an rpc.
func (d *Datastore) EditElements(ctx context.Context, session uint64, elements []*edit.Element, defaultOp edit.Operation) (*edit.ChangeSet, error) {
	root, err := edit.ParseElements(d.oracle, elements, defaultOp)
	if err != nil {
		return nil, err
	}
	return d.Edit(ctx, session, root)
}

// Lock grants session exclusive write access. It fails with lock-denied if any session,
// including this one, already holds the lock.
func (d *Datastore) Lock(session uint64) error {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if d.owner != NoSession {
		return d.lockDenied(d.owner)
	}
	d.owner = session
	return nil
}

// Unlock releases a lock held by session.
func (d *Datastore) Unlock(session uint64) error {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if d.owner == NoSession || d.owner != session {
		return common.NewRPCError(common.ErrTagOperationFailed, "%s datastore is not locked by session %d", d.name, session)
	}
	d.owner = NoSession
	return nil
}

// Release drops any lock held by session. It is called when a session ends.
func (d *Datastore) Release(session uint64) bool {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if d.owner != NoSession && d.owner == session {
		d.owner = NoSession
		return true
	}
	return false
}

// LockedBy delivers the session holding the lock, or NoSession.
func (d *Datastore) LockedBy() uint64 {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	return d.owner
}

func (d *Datastore) checkLock(session uint64) error {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if d.owner != NoSession && d.owner != session {
		return d.lockDenied(d.owner)
	}
	return nil
}

func (d *Datastore) lockDenied(owner uint64) *common.RPCError {
	err := common.NewRPCError(common.ErrTagLockDenied, "%s datastore is locked by session %d", d.name, owner)
	err.Type = common.ErrTypeProtocol
	err.Info = lockInfo(owner)
	return err
}

func lockInfo(owner uint64) *common.ErrorInfo {
	return &common.ErrorInfo{Content: fmt.Sprintf("<session-id>%d</session-id>", owner)}
}
