package receipt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/repairdesk/internal/document"
	"github.com/xenking/repairdesk/internal/domain/client"
	"github.com/xenking/repairdesk/internal/domain/order"
)

// --- Mock implementations ---

type mockReceiptRepo struct {
	receipts map[int64]Receipt
	lastID   int64
}

func newMockReceiptRepo() *mockReceiptRepo {
	return &mockReceiptRepo{receipts: map[int64]Receipt{}}
}

func (m *mockReceiptRepo) Insert(_ context.Context, r *Receipt) error {
	m.lastID++
	r.ID = m.lastID
	m.receipts[r.ID] = *r
	return nil
}

func (m *mockReceiptRepo) Update(_ context.Context, r *Receipt) error {
	if _, ok := m.receipts[r.ID]; !ok {
		return ErrNotFound
	}
	m.receipts[r.ID] = *r
	return nil
}

func (m *mockReceiptRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := m.receipts[id]; !ok {
		return ErrNotFound
	}
	delete(m.receipts, id)
	return nil
}

func (m *mockReceiptRepo) GetByID(_ context.Context, id int64) (*Receipt, error) {
	r, ok := m.receipts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *mockReceiptRepo) ListByClient(_ context.Context, clientID int64) ([]Receipt, error) {
	var out []Receipt
	for _, r := range m.receipts {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReceiptRepo) SetArtifact(_ context.Context, id int64, ref *string) error {
	r, ok := m.receipts[id]
	if !ok {
		return ErrNotFound
	}
	r.ArtifactRef = ref
	m.receipts[id] = r
	return nil
}

type mockOrders struct{}

func (mockOrders) GetOrder(_ context.Context, id int64) (*order.Order, error) {
	switch id {
	case 1:
		return &order.Order{ID: 1, Number: 482913, ClientID: 7, Total: decimal.NewFromInt(180)}, nil
	case 2:
		return &order.Order{ID: 2, Number: 715204, ClientID: 8, Total: decimal.NewFromInt(90)}, nil
	default:
		return nil, order.ErrNotFound
	}
}

type mockClients struct{}

func (mockClients) GetByID(_ context.Context, id int64) (*client.Client, error) {
	if id != 7 && id != 8 {
		return nil, client.ErrNotFound
	}
	return &client.Client{ID: id, Name: "Maria Silva"}, nil
}

type mockDocuments struct {
	generated []document.ReceiptData
	released  []string
	genErr    error
}

func (m *mockDocuments) GenerateReceipt(_ context.Context, data document.ReceiptData) (string, error) {
	if m.genErr != nil {
		return "", m.genErr
	}
	m.generated = append(m.generated, data)
	return fmt.Sprintf("receipts/%d/doc-%d.pdf", data.ID, len(m.generated)), nil
}

func (m *mockDocuments) Release(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.released = append(m.released, ref)
	return nil
}

// --- Helpers ---

func newTestService() (*Service, *mockReceiptRepo, *mockDocuments) {
	repo := newMockReceiptRepo()
	docs := &mockDocuments{}
	svc := NewService(repo, mockOrders{}, mockClients{}, docs)
	svc.now = func() time.Time { return time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC) }
	return svc, repo, docs
}

// --- Tests ---

func TestIssue(t *testing.T) {
	svc, repo, docs := newTestService()

	res, err := svc.Issue(context.Background(), IssueRequest{
		ClientID:     7,
		OrderID:      1,
		AmountPaid:   decimal.NewFromInt(180),
		Method:       MethodCreditCard,
		Installments: 3,
	})
	require.NoError(t, err)
	require.NoError(t, res.DocumentErr)

	r := res.Receipt
	assert.Equal(t, 482913, r.OrderNumber)
	assert.True(t, decimal.NewFromInt(180).Equal(r.OrderTotal))
	assert.Equal(t, 3, r.Installments)
	require.NotNil(t, r.ArtifactRef)
	assert.Equal(t, r.ArtifactRef, repo.receipts[r.ID].ArtifactRef)

	require.Len(t, docs.generated, 1)
	assert.Equal(t, "credit_card", docs.generated[0].PaymentMethod)
}

func TestIssue_InstallmentsOnlyForCreditCard(t *testing.T) {
	svc, _, _ := newTestService()

	res, err := svc.Issue(context.Background(), IssueRequest{
		ClientID:     7,
		OrderID:      1,
		AmountPaid:   decimal.NewFromInt(180),
		Method:       MethodPix,
		Installments: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Receipt.Installments)
}

func TestIssue_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     IssueRequest
		wantErr error
	}{
		{
			name:    "unknown method",
			req:     IssueRequest{ClientID: 7, OrderID: 1, AmountPaid: decimal.NewFromInt(10), Method: "cheque"},
			wantErr: ErrInvalidPaymentMethod,
		},
		{
			name:    "zero amount",
			req:     IssueRequest{ClientID: 7, OrderID: 1, AmountPaid: decimal.Zero, Method: MethodCash},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "too many installments",
			req:     IssueRequest{ClientID: 7, OrderID: 1, AmountPaid: decimal.NewFromInt(10), Method: MethodCreditCard, Installments: 48},
			wantErr: ErrInvalidInstallments,
		},
		{
			name:    "unknown client",
			req:     IssueRequest{ClientID: 9, OrderID: 1, AmountPaid: decimal.NewFromInt(10), Method: MethodCash},
			wantErr: client.ErrNotFound,
		},
		{
			name:    "unknown order",
			req:     IssueRequest{ClientID: 7, OrderID: 5, AmountPaid: decimal.NewFromInt(10), Method: MethodCash},
			wantErr: order.ErrNotFound,
		},
		{
			name:    "order of another client",
			req:     IssueRequest{ClientID: 7, OrderID: 2, AmountPaid: decimal.NewFromInt(10), Method: MethodCash},
			wantErr: ErrOrderMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			_, err := svc.Issue(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.receipts)
		})
	}
}

func TestIssue_DocumentFailure(t *testing.T) {
	svc, repo, docs := newTestService()
	docs.genErr = errors.New("no space")

	res, err := svc.Issue(context.Background(), IssueRequest{
		ClientID: 7, OrderID: 1, AmountPaid: decimal.NewFromInt(50), Method: MethodCash,
	})
	require.NoError(t, err)
	require.ErrorIs(t, res.DocumentErr, order.ErrArtifactGenerationFailed)
	assert.Len(t, repo.receipts, 1)
	assert.Nil(t, res.Receipt.ArtifactRef)
}

func TestEdit(t *testing.T) {
	svc, _, docs := newTestService()

	issued, err := svc.Issue(context.Background(), IssueRequest{
		ClientID: 7, OrderID: 1, AmountPaid: decimal.NewFromInt(100), Method: MethodCash,
	})
	require.NoError(t, err)
	oldRef := *issued.Receipt.ArtifactRef

	res, err := svc.Edit(context.Background(), issued.Receipt.ID, EditRequest{
		AmountPaid:   decimal.NewFromInt(180),
		Method:       MethodCreditCard,
		Installments: 2,
	})
	require.NoError(t, err)
	require.NoError(t, res.DocumentErr)
	assert.Equal(t, 2, res.Receipt.Installments)
	assert.NotEqual(t, oldRef, *res.Receipt.ArtifactRef)
	assert.Equal(t, []string{oldRef}, docs.released)

	_, err = svc.Edit(context.Background(), 99, EditRequest{AmountPaid: decimal.NewFromInt(1), Method: MethodCash})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, repo, docs := newTestService()

	issued, err := svc.Issue(context.Background(), IssueRequest{
		ClientID: 7, OrderID: 1, AmountPaid: decimal.NewFromInt(100), Method: MethodCash,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), issued.Receipt.ID))
	assert.Empty(t, repo.receipts)
	assert.Equal(t, []string{*issued.Receipt.ArtifactRef}, docs.released)

	require.ErrorIs(t, svc.Delete(context.Background(), issued.Receipt.ID), ErrNotFound)
}

func TestDelete_CancelledRequest(t *testing.T) {
	svc, repo, docs := newTestService()

	issued, err := svc.Issue(context.Background(), IssueRequest{
		ClientID: 7, OrderID: 1, AmountPaid: decimal.NewFromInt(100), Method: MethodCash,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, svc.Delete(ctx, issued.Receipt.ID))
	assert.Empty(t, repo.receipts)
	assert.Equal(t, []string{*issued.Receipt.ArtifactRef}, docs.released)
}

func TestListByClient(t *testing.T) {
	svc, _, _ := newTestService()

	for range 2 {
		_, err := svc.Issue(context.Background(), IssueRequest{
			ClientID: 7, OrderID: 1, AmountPaid: decimal.NewFromInt(10), Method: MethodPix,
		})
		require.NoError(t, err)
	}

	list, err := svc.ListByClient(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.ListByClient(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.ListByClient(context.Background(), 9)
	require.ErrorIs(t, err, client.ErrNotFound)
}
