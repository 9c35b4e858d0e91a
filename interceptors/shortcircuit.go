package interceptors

import (
	"context"
	"sync"
)

const (
	// ShortCircuitReasonKey is the invocation value holding why a call was short-circuited
	ShortCircuitReasonKey = "shortcircuit.reason"

	cacheKeyKey = "cache.key"
	cacheHitKey = "cache.hit"
)

// ShortCircuitResult is a substitute result supplied instead of running the operation
type ShortCircuitResult struct {
	Result interface{}
	Reason string
}

// ShortCircuitEvaluator determines if a call should be answered without running it
type ShortCircuitEvaluator interface {
	ShouldShortCircuit(ctx context.Context, inv *Invocation) (bool, *ShortCircuitResult, error)
}

// ShortCircuitEvaluatorFunc is a function adapter for ShortCircuitEvaluator
type ShortCircuitEvaluatorFunc func(ctx context.Context, inv *Invocation) (bool, *ShortCircuitResult, error)

// ShouldShortCircuit implements ShortCircuitEvaluator
func (f ShortCircuitEvaluatorFunc) ShouldShortCircuit(ctx context.Context, inv *Invocation) (bool, *ShortCircuitResult, error) {
	return f(ctx, inv)
}

// ShortCircuitAdvice supplies the evaluator's result and skips the operation
type ShortCircuitAdvice struct {
	evaluator ShortCircuitEvaluator
}

// NewShortCircuitAdvice creates a new short-circuit advice
func NewShortCircuitAdvice(evaluator ShortCircuitEvaluator) *ShortCircuitAdvice {
	return &ShortCircuitAdvice{evaluator: evaluator}
}

// Before implements BeforeAdvice
func (a *ShortCircuitAdvice) Before(ctx context.Context, inv *Invocation) error {
	shouldShortCircuit, result, err := a.evaluator.ShouldShortCircuit(ctx, inv)
	if err != nil {
		return err
	}

	if shouldShortCircuit {
		if result == nil {
			result = &ShortCircuitResult{}
		}
		inv.Set(ShortCircuitReasonKey, result.Reason)
		inv.SetResult(result.Result)
	}
	return nil
}

// Name implements Advice
func (a *ShortCircuitAdvice) Name() string {
	return "ShortCircuitAdvice"
}

// ResultCache stores operation results by key
type ResultCache interface {
	Get(ctx context.Context, key string) (interface{}, bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// CachingAdvice answers repeated calls from a cache. The key is the rendered signature, so
// calls with equal formatted arguments share an entry.
type CachingAdvice struct {
	cache ResultCache
}

// NewCachingAdvice creates a new caching advice
func NewCachingAdvice(cache ResultCache) *CachingAdvice {
	return &CachingAdvice{cache: cache}
}

// Before implements BeforeAdvice
func (a *CachingAdvice) Before(ctx context.Context, inv *Invocation) error {
	key := FormatSignature(inv, DefaultFormatter)
	inv.Set(cacheKeyKey, key)

	cached, found, err := a.cache.Get(ctx, key)
	if err != nil {
		return err
	}

	if found {
		inv.Set(cacheHitKey, true)
		inv.Set(ShortCircuitReasonKey, "cache hit")
		inv.SetResult(cached)
	}
	return nil
}

// After implements AfterAdvice
func (a *CachingAdvice) After(ctx context.Context, inv *Invocation) error {
	if hit, _ := inv.Get(cacheHitKey); hit == true {
		return nil
	}

	key, ok := inv.Get(cacheKeyKey)
	if !ok {
		return nil
	}

	result, _ := inv.Result()
	// A failing cache must not fail a call that succeeded
	_ = a.cache.Set(ctx, key.(string), result)
	return nil
}

// Name implements Advice
func (a *CachingAdvice) Name() string {
	return "CachingAdvice"
}

// MemoryCache is an unbounded in-process ResultCache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]interface{})}
}

// Get implements ResultCache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

// Set implements ResultCache
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ErrorEvaluator decides whether an error can be answered with a substitute result
type ErrorEvaluator interface {
	Fallback(err error) (bool, *ShortCircuitResult)
}

// ErrorEvaluatorFunc is a function adapter for ErrorEvaluator
type ErrorEvaluatorFunc func(err error) (bool, *ShortCircuitResult)

// Fallback implements ErrorEvaluator
func (f ErrorEvaluatorFunc) Fallback(err error) (bool, *ShortCircuitResult) {
	return f(err)
}

// FallbackAdvice suppresses errors the evaluator can substitute a result for
type FallbackAdvice struct {
	evaluator ErrorEvaluator
}

// NewFallbackAdvice creates a new fallback advice
func NewFallbackAdvice(evaluator ErrorEvaluator) *FallbackAdvice {
	return &FallbackAdvice{evaluator: evaluator}
}

// OnException implements ExceptionAdvice
func (a *FallbackAdvice) OnException(ctx context.Context, inv *Invocation) error {
	ok, result := a.evaluator.Fallback(inv.Err())
	if !ok {
		return nil
	}
	if result == nil {
		result = &ShortCircuitResult{}
	}
	inv.Set(ShortCircuitReasonKey, result.Reason)
	inv.Recover(result.Result)
	return nil
}

// Name implements Advice
func (a *FallbackAdvice) Name() string {
	return "FallbackAdvice"
}

// ExceptionMapper translates pending errors, e.g. driver errors into domain errors.
// Returning nil from the map function leaves the error unchanged.
type ExceptionMapper struct {
	mapErr func(err error) error
}

// NewExceptionMapper creates a new exception mapper
func NewExceptionMapper(mapErr func(err error) error) *ExceptionMapper {
	return &ExceptionMapper{mapErr: mapErr}
}

// OnException implements ExceptionAdvice
func (m *ExceptionMapper) OnException(ctx context.Context, inv *Invocation) error {
	return m.mapErr(inv.Err())
}

// Name implements Advice
func (m *ExceptionMapper) Name() string {
	return "ExceptionMapper"
}
