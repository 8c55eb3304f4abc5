package hooking

import (
	"sync"
)

// A Classifier names the category of a hook invocation. Returning false
// skips the invocation.
type Classifier func(ctx HookCtx) (string, bool)

// TagCountTracer counts how many times each category of hook invocation is
// triggered.
type TagCountTracer struct {
	classify Classifier
	lock     sync.Mutex

	tagNames []string
	tagCount map[string]uint64
}

// NewTagCountTracer creates a new TagCountTracer
func NewTagCountTracer(classify Classifier) *TagCountTracer {
	t := &TagCountTracer{
		classify: classify,
		tagCount: make(map[string]uint64),
	}

	return t
}

// Func counts the invocation under the category given by the classifier.
func (t *TagCountTracer) Func(ctx HookCtx) {
	tag, ok := t.classify(ctx)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.countTag(tag)
}

// GetTagNames returns all the tag names collected, in the order they first
// appeared.
func (t *TagCountTracer) GetTagNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, len(t.tagNames))
	copy(names, t.tagNames)

	return names
}

// GetTagCount returns the number of invocations recorded with a certain tag
// name.
func (t *TagCountTracer) GetTagCount(tagName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tagCount[tagName]
}

// Counts returns a copy of all the counters.
func (t *TagCountTracer) Counts() map[string]uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	counts := make(map[string]uint64, len(t.tagCount))
	for k, v := range t.tagCount {
		counts[k] = v
	}

	return counts
}

func (t *TagCountTracer) countTag(tag string) {
	_, ok := t.tagCount[tag]
	if !ok {
		t.tagNames = append(t.tagNames, tag)
	}

	t.tagCount[tag]++
}
