package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/ParcelBox/internal/apperr"
	cachemocks "github.com/BearBump/ParcelBox/internal/cache/mocks"
	"github.com/BearBump/ParcelBox/internal/cache/rediscache"
	"github.com/BearBump/ParcelBox/internal/integrations/gateway"
	"github.com/BearBump/ParcelBox/internal/integrations/gateway/fake"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/storage/memstore"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type countingGateway struct {
	calls  int
	err    error
	amount int64
}

func (g *countingGateway) CreatePaymentIntent(_ context.Context, amount int64, currency string) (gateway.Intent, error) {
	g.calls++
	g.amount = amount
	if g.err != nil {
		return gateway.Intent{}, g.err
	}
	return gateway.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Amount: amount, Currency: currency}, nil
}

type fakeProducer struct {
	topics []string
}

func (p *fakeProducer) Publish(_ context.Context, topic string, _, _ []byte) error {
	p.topics = append(p.topics, topic)
	return nil
}

type ReconcilerSuite struct {
	suite.Suite

	store    *memstore.Store
	gw       *countingGateway
	producer *fakeProducer
	rec      *Reconciler
}

func (s *ReconcilerSuite) SetupTest() {
	s.store = memstore.New()
	s.gw = &countingGateway{}
	s.producer = &fakeProducer{}
	s.rec = New(s.store, s.gw, "usd", s.producer, "parcelbox.payment.recorded")
}

func (s *ReconcilerSuite) TestRecordPayment_RepeatedAppends() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateParcel(ctx, &models.Parcel{
		ID: "p1", CreatedBy: "ann@example.com", Cost: 10,
		PaymentStatus: models.PaymentUnpaid, DeliveryStatus: models.DeliveryNotCollected,
	}))

	in := models.PaymentInput{ParcelID: "p1", Email: "ann@example.com", Amount: 10, TransactionID: "tx_1", Method: "card"}
	first, err := s.rec.RecordPayment(ctx, in)
	s.Require().NoError(err)
	s.Equal(models.PaymentRecordSuccess, first.Status)
	_, err = s.rec.RecordPayment(ctx, in)
	s.Require().NoError(err)

	p, _ := s.store.GetParcel(ctx, "p1")
	s.Equal(models.PaymentPaid, p.PaymentStatus)

	pays, err := s.rec.ListPayments(ctx, "ann@example.com")
	s.Require().NoError(err)
	s.Len(pays, 2)
	s.Equal([]string{"parcelbox.payment.recorded", "parcelbox.payment.recorded"}, s.producer.topics)
}

func (s *ReconcilerSuite) TestRecordPayment_NoParcel() {
	_, err := s.rec.RecordPayment(context.Background(), models.PaymentInput{ParcelID: "missing", Email: "a@example.com", Amount: 1})
	s.ErrorIs(err, apperr.ErrNotFound)

	pays, _ := s.rec.ListPayments(context.Background(), "a@example.com")
	s.Empty(pays)
	s.Empty(s.producer.topics)

	_, err = s.rec.RecordPayment(context.Background(), models.PaymentInput{})
	s.ErrorIs(err, apperr.ErrInvalidInput)
}

func (s *ReconcilerSuite) TestListPayments_NewestFirst() {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"p1", "p2"} {
		s.Require().NoError(s.store.CreateParcel(ctx, &models.Parcel{ID: id, DeliveryStatus: models.DeliveryNotCollected}))
		at := base.Add(time.Duration(i) * time.Hour)
		s.rec.now = func() time.Time { return at }
		_, err := s.rec.RecordPayment(ctx, models.PaymentInput{ParcelID: id, Email: "ann@example.com", Amount: 5})
		s.Require().NoError(err)
	}
	pays, err := s.rec.ListPayments(ctx, "ann@example.com")
	s.Require().NoError(err)
	s.Require().Len(pays, 2)
	s.Equal("p2", pays[0].ParcelID)
}

func (s *ReconcilerSuite) TestCreatePaymentIntent() {
	secret, err := s.rec.CreatePaymentIntent(context.Background(), "ann@example.com", 1250, "")
	s.Require().NoError(err)
	s.Equal("pi_1_secret", secret)
	s.EqualValues(1250, s.gw.amount)

	_, err = s.rec.CreatePaymentIntent(context.Background(), "ann@example.com", 0, "")
	s.ErrorIs(err, apperr.ErrInvalidInput)
	s.Equal(1, s.gw.calls)
}

func (s *ReconcilerSuite) TestCreatePaymentIntent_GatewayFailure() {
	s.gw.err = errors.New("tls handshake timeout")
	_, err := s.rec.CreatePaymentIntent(context.Background(), "ann@example.com", 100, "")
	s.ErrorIs(err, apperr.ErrUpstream)
	s.Equal("Payment initiation failed", apperr.Message(err))
}

func (s *ReconcilerSuite) TestCreatePaymentIntent_IdempotentHit() {
	c := cachemocks.NewMockBytesCache(s.T())
	s.rec.WithIdempotencyCache(c, time.Hour)

	c.On("Get", mock.Anything, "intent:ann@example.com:key-1").
		Return([]byte(`{"client_secret":"cached_secret","amount":100}`), true, nil).Once()

	secret, err := s.rec.CreatePaymentIntent(context.Background(), "Ann@Example.com", 100, "key-1")
	s.Require().NoError(err)
	s.Equal("cached_secret", secret)
	s.Equal(0, s.gw.calls)
}

func (s *ReconcilerSuite) TestCreatePaymentIntent_IdempotentMissStores() {
	c := cachemocks.NewMockBytesCache(s.T())
	s.rec.WithIdempotencyCache(c, time.Hour)

	c.On("Get", mock.Anything, "intent:ann@example.com:key-2").Return(nil, false, nil).Once()
	c.On("Set", mock.Anything, "intent:ann@example.com:key-2",
		[]byte(`{"client_secret":"pi_1_secret","amount":100}`), time.Hour).Return(nil).Once()

	secret, err := s.rec.CreatePaymentIntent(context.Background(), "ann@example.com", 100, "key-2")
	s.Require().NoError(err)
	s.Equal("pi_1_secret", secret)
	s.Equal(1, s.gw.calls)
}

func (s *ReconcilerSuite) TestCreatePaymentIntent_CacheErrorFallsThrough() {
	c := cachemocks.NewMockBytesCache(s.T())
	rec := New(s.store, fake.New(), "", nil, "").WithIdempotencyCache(c, time.Minute)

	c.On("Get", mock.Anything, "intent:ann@example.com:key-3").Return(nil, false, errors.New("redis down")).Once()
	c.On("Set", mock.Anything, "intent:ann@example.com:key-3", mock.Anything, time.Minute).Return(errors.New("redis down")).Once()

	secret, err := rec.CreatePaymentIntent(context.Background(), "ann@example.com", 100, "key-3")
	s.Require().NoError(err)
	s.NotEmpty(secret)
}

func (s *ReconcilerSuite) redisBackedReconciler() *Reconciler {
	mr := miniredis.RunT(s.T())
	rc := rediscache.New(mr.Addr())
	s.T().Cleanup(func() { _ = rc.Close() })
	return New(s.store, s.gw, "usd", nil, "").WithIdempotencyCache(rc, time.Hour)
}

func (s *ReconcilerSuite) TestCreatePaymentIntent_ReusedKeyDifferentAmount() {
	rec := s.redisBackedReconciler()
	ctx := context.Background()

	secret, err := rec.CreatePaymentIntent(ctx, "ann@example.com", 500, "checkout-1")
	s.Require().NoError(err)
	s.NotEmpty(secret)

	_, err = rec.CreatePaymentIntent(ctx, "ann@example.com", 99999, "checkout-1")
	s.ErrorIs(err, apperr.ErrInvalidInput)
	s.Equal(1, s.gw.calls)

	again, err := rec.CreatePaymentIntent(ctx, "ann@example.com", 500, "checkout-1")
	s.Require().NoError(err)
	s.Equal(secret, again)
	s.Equal(1, s.gw.calls)
}

func (s *ReconcilerSuite) TestCreatePaymentIntent_KeyScopedToPayer() {
	rec := s.redisBackedReconciler()
	ctx := context.Background()

	_, err := rec.CreatePaymentIntent(ctx, "ann@example.com", 500, "checkout-1")
	s.Require().NoError(err)
	_, err = rec.CreatePaymentIntent(ctx, "eve@example.com", 500, "checkout-1")
	s.Require().NoError(err)
	s.Equal(2, s.gw.calls)
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}
