package usecase

import (
	"context"
	"testing"
	"time"

	"UsagePrep/internal/domain/models"
	applogger "UsagePrep/pkg/logger"
)

func balanceCfg() BalanceConfig {
	return BalanceConfig{
		RatePair1:     "WAKMRV",
		RatePair2:     "MRVZAR",
		DefaultRate:   1,
		WindowBuckets: 3,
	}
}

func testCustomer() models.Customer {
	return models.Customer{
		AccountID: 1,
		OwnerName: "T. Mokoena",
		Email:     "t.mokoena@example.com",
		Phone:     "27831234567",
		Devices:   []models.Device{{DeviceID: 31, DeviceName: "Galaxy A54", DeviceType: "smartphone", DeviceOS: "Android"}},
	}
}

func TestBalanceFlattenerAccumulation(t *testing.T) {
	now := time.Date(2026, 1, 5, 15, 10, 0, 0, time.UTC)
	h13 := time.Date(2026, 1, 5, 13, 0, 0, 0, time.UTC)
	h14 := h13.Add(time.Hour)

	store := newFakeStore()
	store.hourlyUsage = []models.UsageSummary{
		{MSISDN: "27831234567", BucketStart: h13, CallCost: 10, DataCost: 10, TotalCost: 20},
		{MSISDN: "27831234567", BucketStart: h14, CallCost: 5, DataCost: 5, TotalCost: 10},
	}
	store.rates["WAKMRV"] = map[time.Time]float64{h13: 2, h14: 2}
	store.rates["MRVZAR"] = map[time.Time]float64{h13: 5, h14: 5}
	store.lastBalances[1] = 7

	f := NewBalanceFlattener(&fakeCustomers{customers: []models.Customer{testCustomer()}},
		store, newFakeMetrics(), applogger.Nop(), balanceCfg())

	if _, err := f.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	rows := store.balances
	if len(rows) != 3 {
		t.Fatalf("expected 3 hourly rows, got %d", len(rows))
	}

	// ZAR/WAK is 2*5=10, so 20 ZAR converts to 2 and 10 ZAR to 1, on top of
	// the seeded balance of 7.
	if !approx(rows[0].AccumulatedCostSecondary, 9) {
		t.Fatalf("13:00 accumulated = %v, want 9", rows[0].AccumulatedCostSecondary)
	}
	if !approx(rows[1].AccumulatedCostSecondary, 10) {
		t.Fatalf("14:00 accumulated = %v, want 10", rows[1].AccumulatedCostSecondary)
	}
	// No usage at 15:00: the balance carries.
	if !approx(rows[2].AccumulatedCostSecondary, 10) {
		t.Fatalf("15:00 accumulated = %v, want 10", rows[2].AccumulatedCostSecondary)
	}

	if rows[0].AvgRate1 == nil || !approx(*rows[0].AvgRate1, 2) {
		t.Fatalf("13:00 avg rate 1 = %v, want 2", rows[0].AvgRate1)
	}
	if rows[2].AvgRate1 != nil || rows[2].AvgRate2 != nil {
		t.Fatalf("15:00 has no candles, rates must be nil")
	}

	// The chain invariant: each hour adds exactly its secondary total.
	prev := 7.0
	for _, r := range rows {
		if !approx(r.AccumulatedCostSecondary, prev+r.TotalCostSecondary) {
			t.Fatalf("accumulation broken at %v: %v != %v + %v",
				r.Hour, r.AccumulatedCostSecondary, prev, r.TotalCostSecondary)
		}
		prev = r.AccumulatedCostSecondary
	}
}

func TestBalanceFlattenerDefaultRateFallback(t *testing.T) {
	now := time.Date(2026, 1, 5, 15, 10, 0, 0, time.UTC)
	h14 := time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.hourlyUsage = []models.UsageSummary{
		{MSISDN: "27831234567", BucketStart: h14, CallCost: 30, DataCost: 20, TotalCost: 50},
	}

	f := NewBalanceFlattener(&fakeCustomers{customers: []models.Customer{testCustomer()}},
		store, newFakeMetrics(), applogger.Nop(), balanceCfg())

	if _, err := f.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	rows := store.balances
	if len(rows) != 3 {
		t.Fatalf("expected 3 hourly rows, got %d", len(rows))
	}
	// With no candles the conversion falls back to the default rate of 1.
	if !approx(rows[1].TotalCostSecondary, 50) {
		t.Fatalf("14:00 secondary total = %v, want 50", rows[1].TotalCostSecondary)
	}
	if rows[1].AvgRate1 != nil {
		t.Fatalf("avg rate must be nil when no candles exist")
	}
	if !approx(rows[2].AccumulatedCostSecondary, 50) {
		t.Fatalf("15:00 accumulated = %v, want 50", rows[2].AccumulatedCostSecondary)
	}
}

func TestBalanceFlattenerSkipsCustomersWithoutPhone(t *testing.T) {
	now := time.Date(2026, 1, 5, 15, 10, 0, 0, time.UTC)

	noPhone := testCustomer()
	noPhone.AccountID = 2
	noPhone.Phone = ""

	store := newFakeStore()
	f := NewBalanceFlattener(&fakeCustomers{customers: []models.Customer{testCustomer(), noPhone}},
		store, newFakeMetrics(), applogger.Nop(), balanceCfg())

	if _, err := f.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, r := range store.balances {
		if r.AccountID == 2 {
			t.Fatalf("account without MSISDN must not be flattened")
		}
	}
	if len(store.balances) != 3 {
		t.Fatalf("expected 3 rows for the linked account, got %d", len(store.balances))
	}
}

func TestBalanceFlattenerCopiesDimension(t *testing.T) {
	now := time.Date(2026, 1, 5, 15, 10, 0, 0, time.UTC)

	store := newFakeStore()
	f := NewBalanceFlattener(&fakeCustomers{customers: []models.Customer{testCustomer()}},
		store, newFakeMetrics(), applogger.Nop(), balanceCfg())

	if _, err := f.Run(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}

	r := store.balances[0]
	if r.OwnerName != "T. Mokoena" || r.Email != "t.mokoena@example.com" {
		t.Fatalf("dimension not copied: %+v", r)
	}
	if r.Device.DeviceName != "Galaxy A54" {
		t.Fatalf("first device not flattened: %+v", r.Device)
	}
}
