package finance

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// memoryState is one snapshot of every table.
type memoryState struct {
	invoices        map[uuid.UUID]finance.Invoice
	payments        []finance.Payment
	pendingCredits  map[uuid.UUID]finance.PendingCredit
	expenses        map[uuid.UUID]finance.Expense
	expensePayments []finance.ExpensePayment
	sources         map[uuid.UUID]finance.PaymentSource
	sourceTxs       []finance.PaymentSourceTransaction
	clients         map[uuid.UUID]partner.Client
	creditHistory   []partner.CreditHistoryEntry
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		invoices:        make(map[uuid.UUID]finance.Invoice, len(s.invoices)),
		payments:        append([]finance.Payment(nil), s.payments...),
		pendingCredits:  make(map[uuid.UUID]finance.PendingCredit, len(s.pendingCredits)),
		expenses:        make(map[uuid.UUID]finance.Expense, len(s.expenses)),
		expensePayments: append([]finance.ExpensePayment(nil), s.expensePayments...),
		sources:         make(map[uuid.UUID]finance.PaymentSource, len(s.sources)),
		sourceTxs:       append([]finance.PaymentSourceTransaction(nil), s.sourceTxs...),
		clients:         make(map[uuid.UUID]partner.Client, len(s.clients)),
		creditHistory:   append([]partner.CreditHistoryEntry(nil), s.creditHistory...),
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.pendingCredits {
		c.pendingCredits[k] = v
	}
	for k, v := range s.expenses {
		c.expenses[k] = v
	}
	for k, v := range s.sources {
		c.sources[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	return c
}

// memoryStore is a TransactionScope whose transactions are serialized and
// only become visible on commit.
type memoryStore struct {
	mu       sync.Mutex
	state    *memoryState
	failures map[string][]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		state: &memoryState{
			invoices:       map[uuid.UUID]finance.Invoice{},
			pendingCredits: map[uuid.UUID]finance.PendingCredit{},
			expenses:       map[uuid.UUID]finance.Expense{},
			sources:        map[uuid.UUID]finance.PaymentSource{},
			clients:        map[uuid.UUID]partner.Client{},
		},
		failures: map[string][]error{},
	}
}

// failNext makes the next calls of op return errs, one per call.
func (m *memoryStore) failNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
}

func (m *memoryStore) fault(op string) error {
	queue := m.failures[op]
	if len(queue) == 0 {
		return nil
	}
	m.failures[op] = queue[1:]
	return queue[0]
}

func (m *memoryStore) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memoryTx{store: m, st: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// seed writes directly, outside any transaction.
func (m *memoryStore) seed(fn func(st *memoryState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

func (m *memoryStore) snapshot() *memoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

type memoryTx struct {
	store *memoryStore
	st    *memoryState
}

func (t *memoryTx) InvoiceRepo() finance.InvoiceRepository { return memInvoices{t} }
func (t *memoryTx) PaymentRepo() finance.PaymentRepository { return memPayments{t} }
func (t *memoryTx) PendingCreditRepo() finance.PendingCreditRepository {
	return memPendingCredits{t}
}
func (t *memoryTx) ExpenseRepo() finance.ExpenseRepository { return memExpenses{t} }
func (t *memoryTx) ExpensePaymentRepo() finance.ExpensePaymentRepository {
	return memExpensePayments{t}
}
func (t *memoryTx) PaymentSourceRepo() finance.PaymentSourceRepository { return memSources{t} }
func (t *memoryTx) PaymentSourceTransactionRepo() finance.PaymentSourceTransactionRepository {
	return memSourceTxs{t}
}
func (t *memoryTx) ClientRepo() partner.ClientRepository { return memClients{t} }
func (t *memoryTx) CreditHistoryRepo() partner.CreditHistoryRepository {
	return memCreditHistory{t}
}

// --- invoices

type memInvoices struct{ tx *memoryTx }

func (r memInvoices) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	inv, ok := r.tx.st.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r memInvoices) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	if err := r.tx.store.fault("Invoice.Lock"); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, tenantID, id)
}

func (r memInvoices) Create(_ context.Context, inv *finance.Invoice) error {
	row := *inv
	row.ClearDomainEvents()
	r.tx.st.invoices[inv.ID] = row
	return nil
}

func (r memInvoices) SaveWithLock(_ context.Context, inv *finance.Invoice) error {
	if err := r.tx.store.fault("Invoice.Save"); err != nil {
		return err
	}
	stored, ok := r.tx.st.invoices[inv.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != inv.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	row := *inv
	row.ClearDomainEvents()
	r.tx.st.invoices[inv.ID] = row
	return nil
}

// --- payments

type memPayments struct{ tx *memoryTx }

func (r memPayments) Create(_ context.Context, p *finance.Payment) error {
	if err := r.tx.store.fault("Payment.Create"); err != nil {
		return err
	}
	r.tx.st.payments = append(r.tx.st.payments, *p)
	return nil
}

func (r memPayments) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	for _, p := range r.tx.st.payments {
		if p.ID == id && p.TenantID == tenantID {
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memPayments) FindByInvoiceID(_ context.Context, tenantID, invoiceID uuid.UUID) ([]*finance.Payment, error) {
	var out []*finance.Payment
	for _, p := range r.tx.st.payments {
		if p.InvoiceID == invoiceID && p.TenantID == tenantID {
			out = append(out, &p)
		}
	}
	return out, nil
}

// --- pending credits

type memPendingCredits struct{ tx *memoryTx }

func (r memPendingCredits) Create(_ context.Context, pc *finance.PendingCredit) error {
	r.tx.st.pendingCredits[pc.PaymentID] = *pc
	return nil
}

func (r memPendingCredits) Update(_ context.Context, pc *finance.PendingCredit) error {
	r.tx.st.pendingCredits[pc.PaymentID] = *pc
	return nil
}

func (r memPendingCredits) FindByPaymentID(_ context.Context, paymentID uuid.UUID) (*finance.PendingCredit, error) {
	pc, ok := r.tx.st.pendingCredits[paymentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &pc, nil
}

func (r memPendingCredits) FindUnsettled(_ context.Context, limit int) ([]*finance.PendingCredit, error) {
	var out []*finance.PendingCredit
	for _, pc := range r.tx.st.pendingCredits {
		if !pc.IsSettled() {
			out = append(out, &pc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- expenses

type memExpenses struct{ tx *memoryTx }

func (r memExpenses) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.Expense, error) {
	e, ok := r.tx.st.expenses[id]
	if !ok || e.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &e, nil
}

func (r memExpenses) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Expense, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r memExpenses) Create(_ context.Context, e *finance.Expense) error {
	row := *e
	row.ClearDomainEvents()
	r.tx.st.expenses[e.ID] = row
	return nil
}

func (r memExpenses) SaveWithLock(_ context.Context, e *finance.Expense) error {
	stored, ok := r.tx.st.expenses[e.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != e.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	row := *e
	row.ClearDomainEvents()
	r.tx.st.expenses[e.ID] = row
	return nil
}

type memExpensePayments struct{ tx *memoryTx }

func (r memExpensePayments) Create(_ context.Context, p *finance.ExpensePayment) error {
	r.tx.st.expensePayments = append(r.tx.st.expensePayments, *p)
	return nil
}

func (r memExpensePayments) FindByExpenseID(_ context.Context, tenantID, expenseID uuid.UUID) ([]*finance.ExpensePayment, error) {
	var out []*finance.ExpensePayment
	for _, p := range r.tx.st.expensePayments {
		if p.ExpenseID == expenseID && p.TenantID == tenantID {
			out = append(out, &p)
		}
	}
	return out, nil
}

// --- payment sources

type memSources struct{ tx *memoryTx }

func (r memSources) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.PaymentSource, error) {
	s, ok := r.tx.st.sources[id]
	if !ok || s.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (r memSources) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.PaymentSource, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r memSources) Create(_ context.Context, s *finance.PaymentSource) error {
	row := *s
	row.ClearDomainEvents()
	r.tx.st.sources[s.ID] = row
	return nil
}

func (r memSources) SaveWithLock(_ context.Context, s *finance.PaymentSource) error {
	if err := r.tx.store.fault("Source.Save"); err != nil {
		return err
	}
	stored, ok := r.tx.st.sources[s.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != s.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	row := *s
	row.ClearDomainEvents()
	r.tx.st.sources[s.ID] = row
	return nil
}

type memSourceTxs struct{ tx *memoryTx }

func (r memSourceTxs) Create(_ context.Context, t *finance.PaymentSourceTransaction) error {
	r.tx.st.sourceTxs = append(r.tx.st.sourceTxs, *t)
	return nil
}

func (r memSourceTxs) all(tenantID, sourceID uuid.UUID) []*finance.PaymentSourceTransaction {
	var out []*finance.PaymentSourceTransaction
	for _, t := range r.tx.st.sourceTxs {
		if t.PaymentSourceID == sourceID && t.TenantID == tenantID {
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (r memSourceTxs) FindBySourceID(_ context.Context, tenantID, sourceID uuid.UUID, filter shared.Filter) ([]*finance.PaymentSourceTransaction, int64, error) {
	all := r.all(tenantID, sourceID)
	newest := make([]*finance.PaymentSourceTransaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		newest = append(newest, all[i])
	}
	return page(newest, filter), int64(len(all)), nil
}

func (r memSourceTxs) FindAllBySourceID(_ context.Context, tenantID, sourceID uuid.UUID) ([]*finance.PaymentSourceTransaction, error) {
	return r.all(tenantID, sourceID), nil
}

func (r memSourceTxs) GetLatestBySourceID(_ context.Context, tenantID, sourceID uuid.UUID) (*finance.PaymentSourceTransaction, error) {
	all := r.all(tenantID, sourceID)
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// --- clients

type memClients struct{ tx *memoryTx }

func (r memClients) FindByID(_ context.Context, tenantID, id uuid.UUID) (*partner.Client, error) {
	c, ok := r.tx.st.clients[id]
	if !ok || c.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r memClients) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*partner.Client, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r memClients) Create(_ context.Context, c *partner.Client) error {
	row := *c
	row.ClearDomainEvents()
	r.tx.st.clients[c.ID] = row
	return nil
}

func (r memClients) SaveWithLock(_ context.Context, c *partner.Client) error {
	if err := r.tx.store.fault("Client.Save"); err != nil {
		return err
	}
	stored, ok := r.tx.st.clients[c.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != c.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	row := *c
	row.ClearDomainEvents()
	r.tx.st.clients[c.ID] = row
	return nil
}

type memCreditHistory struct{ tx *memoryTx }

func (r memCreditHistory) Create(_ context.Context, e *partner.CreditHistoryEntry) error {
	if err := r.tx.store.fault("CreditHistory.Create"); err != nil {
		return err
	}
	if e.PaymentID != nil {
		for _, existing := range r.tx.st.creditHistory {
			if existing.PaymentID != nil && *existing.PaymentID == *e.PaymentID && existing.Type == e.Type {
				return shared.ErrAlreadyExists
			}
		}
	}
	r.tx.st.creditHistory = append(r.tx.st.creditHistory, *e)
	return nil
}

func (r memCreditHistory) all(tenantID, clientID uuid.UUID) []*partner.CreditHistoryEntry {
	var out []*partner.CreditHistoryEntry
	for _, e := range r.tx.st.creditHistory {
		if e.ClientID == clientID && e.TenantID == tenantID {
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (r memCreditHistory) FindByClientID(_ context.Context, tenantID, clientID uuid.UUID, filter shared.Filter) ([]*partner.CreditHistoryEntry, int64, error) {
	all := r.all(tenantID, clientID)
	newest := make([]*partner.CreditHistoryEntry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		newest = append(newest, all[i])
	}
	return page(newest, filter), int64(len(all)), nil
}

func (r memCreditHistory) FindAllByClientID(_ context.Context, tenantID, clientID uuid.UUID) ([]*partner.CreditHistoryEntry, error) {
	return r.all(tenantID, clientID), nil
}

func (r memCreditHistory) GetLatestByClientID(_ context.Context, tenantID, clientID uuid.UUID) (*partner.CreditHistoryEntry, error) {
	all := r.all(tenantID, clientID)
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

func (r memCreditHistory) FindByPaymentID(_ context.Context, tenantID, paymentID uuid.UUID, entryType partner.CreditEntryType) (*partner.CreditHistoryEntry, error) {
	for _, e := range r.tx.st.creditHistory {
		if e.TenantID == tenantID && e.PaymentID != nil && *e.PaymentID == paymentID && e.Type == entryType {
			return &e, nil
		}
	}
	return nil, nil
}

func page[T any](items []T, filter shared.Filter) []T {
	if filter.PageSize <= 0 {
		return items
	}
	start := filter.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + filter.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
