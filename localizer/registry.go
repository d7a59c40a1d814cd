package localizer

import (
	"sync"

	"go.viam.com/localizer/spatialmath"
)

// registry maps names to tracked objects. Objects are never removed, so a pointer handed out stays
// valid for the life of the localizer.
type registry struct {
	mu      sync.RWMutex
	objects map[string]*trackedObject
	order   []*trackedObject
}

func newRegistry() *registry {
	return &registry{objects: map[string]*trackedObject{}}
}

// register inserts name or replaces its configuration. It returns the object and whether it was
// created by this call. An existing object keeps its uri.
func (r *registry) register(
	name, uri string,
	offset spatialmath.Pose,
	robotFrame bool,
) (*trackedObject, bool) {
	r.mu.Lock()
	obj, ok := r.objects[name]
	if !ok {
		obj = newTrackedObject(name, uri, offset, robotFrame)
		r.objects[name] = obj
		r.order = append(r.order, obj)
	}
	r.mu.Unlock()

	if ok {
		// Configure outside the registry lock, the object lock may be contended by the loop.
		obj.configure(offset, robotFrame)
	}
	return obj, !ok
}

func (r *registry) lookup(name string) (*trackedObject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[name]
	if !ok {
		return nil, NewUnknownObjectError(name)
	}
	return obj, nil
}

// snapshot returns the objects in registration order. Objects registered afterwards are not part of
// it and show up in the next snapshot.
func (r *registry) snapshot() []*trackedObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	objs := make([]*trackedObject, len(r.order))
	copy(objs, r.order)
	return objs
}

func (r *registry) names() []string {
	objs := r.snapshot()
	names := make([]string, 0, len(objs))
	for _, obj := range objs {
		names = append(names, obj.name)
	}
	return names
}
