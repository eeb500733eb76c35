package repository

import (
	"context"
	"encoding/json"
	"time"

	"UsagePrep/internal/domain/models"
	"UsagePrep/internal/domain/repository"
	"UsagePrep/internal/service/cache"
	applogger "UsagePrep/pkg/logger"
)

const customerCacheKey = "crm:dimension"

// CachedCustomerReader caches the customer dimension. The dimension is
// static/slow-changing, so cycles within the TTL skip the three-table read.
// Cache failures fall through to the inner reader.
type CachedCustomerReader struct {
	inner repository.CustomerReader
	cache cache.BytesCache
	ttl   time.Duration
	log   *applogger.Logger
}

// NewCachedCustomerReader wraps a customer reader with a TTL cache.
func NewCachedCustomerReader(inner repository.CustomerReader, c cache.BytesCache, ttl time.Duration, log *applogger.Logger) repository.CustomerReader {
	return &CachedCustomerReader{inner: inner, cache: c, ttl: ttl, log: log}
}

func (r *CachedCustomerReader) ReadCustomers(ctx context.Context) ([]models.Customer, error) {
	if b, ok, err := r.cache.GetBytes(customerCacheKey); err == nil && ok {
		var customers []models.Customer
		if err := json.Unmarshal(b, &customers); err == nil {
			return customers, nil
		}
	} else if err != nil {
		r.log.Warn("customer cache read failed", applogger.Error(err))
	}

	customers, err := r.inner.ReadCustomers(ctx)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(customers); err == nil {
		if err := r.cache.SetBytes(customerCacheKey, b, r.ttl); err != nil {
			r.log.Warn("customer cache write failed", applogger.Error(err))
		}
	}
	return customers, nil
}
