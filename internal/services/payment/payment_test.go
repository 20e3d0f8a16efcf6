package payment

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/ventures-access/internal/models"
)

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) ETHPriceUSD(ctx context.Context) (float64, bool) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Bool(1)
}

type MockProbe struct {
	mock.Mock
}

func (m *MockProbe) CheckPayment(ctx context.Context, address string, lookbackDays int) (bool, *float64) {
	args := m.Called(ctx, address, lookbackDays)
	if args.Get(1) == nil {
		return args.Bool(0), nil
	}
	return args.Bool(0), args.Get(1).(*float64)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func ptr[T any](v T) *T { return &v }

func TestAggregator_Aggregate(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		want Signals
	}{
		{
			name: "no signals",
			user: &models.User{},
			want: Signals{HasPayment: false, AmountUSD: 17.99},
		},
		{
			name: "subscription rail",
			user: &models.User{SubscriptionUpdateActive: true},
			want: Signals{HasPayment: true, AmountUSD: 17.99},
		},
		{
			name: "legacy membership rail",
			user: &models.User{MembershipPaid: true},
			want: Signals{HasPayment: true, AmountUSD: 17.99},
		},
		{
			name: "eth rail with amount",
			user: &models.User{EthPaymentVerified: true, EthPaymentAmount: ptr(222.0)},
			want: Signals{HasPayment: true, AmountUSD: 222},
		},
		{
			name: "subscription amount",
			user: &models.User{SubscriptionUpdateActive: true, SubscriptionAmountUSD: ptr(500.0)},
			want: Signals{HasPayment: true, AmountUSD: 500},
		},
		{
			name: "larger of eth and subscription amount",
			user: &models.User{
				SubscriptionUpdateActive: true,
				SubscriptionAmountUSD:    ptr(500.0),
				EthPaymentVerified:       true,
				EthPaymentAmount:         ptr(1500.0),
			},
			want: Signals{HasPayment: true, AmountUSD: 1500},
		},
		{
			name: "subscription amount above eth amount",
			user: &models.User{
				SubscriptionUpdateActive: true,
				SubscriptionAmountUSD:    ptr(222.0),
				EthPaymentVerified:       true,
				EthPaymentAmount:         ptr(17.99),
			},
			want: Signals{HasPayment: true, AmountUSD: 222},
		},
		{
			name: "unverified eth amount is not a payment",
			user: &models.User{EthPaymentAmount: ptr(1500.0)},
			want: Signals{HasPayment: false, AmountUSD: 1500},
		},
		{
			name: "nil user",
			user: nil,
			want: Signals{},
		},
	}

	agg := NewAggregator(nil, nil, newNoopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, agg.Aggregate(context.Background(), tt.user))
		})
	}
}

func TestAggregator_SpotConversion(t *testing.T) {
	user := &models.User{EthPaymentVerified: true, EthPaymentAmount: ptr(0.1)}

	t.Run("price available", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("ETHPriceUSD", mock.Anything).Return(3000.0, true).Once()

		agg := NewAggregator(NewConverter("spot", oracle, newNoopLogger()), nil, newNoopLogger())
		got := agg.Aggregate(context.Background(), user)

		assert.True(t, got.HasPayment)
		assert.InDelta(t, 300.0, got.AmountUSD, 1e-9)
		oracle.AssertExpectations(t)
	})

	t.Run("price unavailable falls back to raw amount", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("ETHPriceUSD", mock.Anything).Return(0.0, false).Once()

		agg := NewAggregator(NewConverter("spot", oracle, newNoopLogger()), nil, newNoopLogger())
		got := agg.Aggregate(context.Background(), user)

		assert.Equal(t, 0.1, got.AmountUSD)
		oracle.AssertExpectations(t)
	})
}

func TestNewConverter(t *testing.T) {
	oracle := new(MockOracle)
	assert.IsType(t, RawConverter{}, NewConverter("raw", oracle, newNoopLogger()))
	assert.IsType(t, RawConverter{}, NewConverter("spot", nil, newNoopLogger()))
	assert.IsType(t, &SpotConverter{}, NewConverter("spot", oracle, newNoopLogger()))
}

func TestAggregator_CheckEthPayment(t *testing.T) {
	t.Run("default lookback", func(t *testing.T) {
		probe := new(MockProbe)
		probe.On("CheckPayment", mock.Anything, "0xabc", DefaultLookbackDays).Return(true, ptr(0.5)).Once()

		agg := NewAggregator(nil, probe, newNoopLogger())
		paid, amount := agg.CheckEthPayment(context.Background(), "0xabc", 0)

		assert.True(t, paid)
		assert.Equal(t, 0.5, *amount)
		probe.AssertExpectations(t)
	})

	t.Run("configured lookback", func(t *testing.T) {
		probe := new(MockProbe)
		probe.On("CheckPayment", mock.Anything, "0xabc", 14).Return(false, nil).Once()
		probe.On("CheckPayment", mock.Anything, "0xabc", 3).Return(false, nil).Once()

		agg := NewAggregator(nil, probe, newNoopLogger(), WithLookbackDays(14))
		paid, _ := agg.CheckEthPayment(context.Background(), "0xabc", 0)
		assert.False(t, paid)
		paid, _ = agg.CheckEthPayment(context.Background(), "0xabc", 3)
		assert.False(t, paid)

		probe.AssertExpectations(t)
	})

	t.Run("non-positive option keeps default", func(t *testing.T) {
		probe := new(MockProbe)
		probe.On("CheckPayment", mock.Anything, "0xabc", DefaultLookbackDays).Return(false, nil).Once()

		agg := NewAggregator(nil, probe, newNoopLogger(), WithLookbackDays(-5))
		agg.CheckEthPayment(context.Background(), "0xabc", 0)

		probe.AssertExpectations(t)
	})

	t.Run("stub never reports payment", func(t *testing.T) {
		for _, addr := range []string{"", "0x0000000000000000000000000000000000000000", "0x1111111111111111111111111111111111111111"} {
			agg := NewAggregator(nil, NewStubProbe(addr, newNoopLogger()), newNoopLogger())
			paid, amount := agg.CheckEthPayment(context.Background(), "0xabc", 7)
			assert.False(t, paid)
			assert.Nil(t, amount)
		}
	})
}

func TestStubProbe_Enabled(t *testing.T) {
	assert.False(t, NewStubProbe("", newNoopLogger()).Enabled())
	assert.False(t, NewStubProbe("0x0000000000000000000000000000000000000000", newNoopLogger()).Enabled())
	assert.True(t, NewStubProbe("0x1111111111111111111111111111111111111111", newNoopLogger()).Enabled())
}
