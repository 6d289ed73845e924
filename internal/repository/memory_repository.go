package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/budget-server/internal/models"
)

// memoryState holds every table of the in-memory store. The same foreign-key
// policies as the SQL schema are applied by hand.
type memoryState struct {
	users        map[string]models.User
	budgets      map[string]models.Budget
	budgetUsers  map[string]map[string]time.Time
	categories   map[string]models.Category
	transactions map[string]models.Transaction
	seq          map[string]int64
	next         int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:        make(map[string]models.User),
		budgets:      make(map[string]models.Budget),
		budgetUsers:  make(map[string]map[string]time.Time),
		categories:   make(map[string]models.Category),
		transactions: make(map[string]models.Transaction),
		seq:          make(map[string]int64),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.budgets {
		c.budgets[k] = v
	}
	for k, members := range s.budgetUsers {
		m := make(map[string]time.Time, len(members))
		for u, at := range members {
			m[u] = at
		}
		c.budgetUsers[k] = m
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	c.next = s.next
	return c
}

func (s *memoryState) track(id string) {
	s.next++
	s.seq[id] = s.next
}

func (s *memoryState) untrack(id string) {
	delete(s.seq, id)
}

func shareKey(budgetID, userID string) string {
	return budgetID + "/" + userID
}

// MemoryRepository implements the Repository interface in process memory.
// It backs the test suites and DATA_BACKEND=memory.
type MemoryRepository struct {
	mu    *sync.RWMutex
	state *memoryState
	inTx  bool
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mu:    &sync.RWMutex{},
		state: newMemoryState(),
	}
}

func (r *MemoryRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *MemoryRepository) rlock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.RLock()
	return r.mu.RUnlock
}

// WithTx runs fn against a snapshot and publishes it only when fn succeeds
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(repo Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	if err := fn(&MemoryRepository{mu: r.mu, state: snapshot, inTx: true}); err != nil {
		return err
	}

	*r.state = *snapshot
	return nil
}

// Reset drops every row
func (r *MemoryRepository) Reset() {
	defer r.lock()()
	*r.state = *newMemoryState()
}

func (r *MemoryRepository) sortBySeq(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return r.state.seq[ids[i]] < r.state.seq[ids[j]]
	})
}

// User repository methods
func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	defer r.lock()()

	for _, u := range r.state.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", ErrDuplicate)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.state.users[user.ID] = *user
	r.state.track(user.ID)
	return nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.rlock()()

	for _, u := range r.state.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	defer r.rlock()()

	u, ok := r.state.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryRepository) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	defer r.lock()()

	if u, ok := r.state.users[id]; ok {
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
		r.state.users[id] = u
	}
	return nil
}

func (r *MemoryRepository) DeleteUser(ctx context.Context, id string) error {
	defer r.lock()()

	for _, c := range r.state.categories {
		if c.UserID != nil && *c.UserID == id {
			return fmt.Errorf("%w: categories_user_id_fkey", ErrReferenced)
		}
	}

	for budgetID, b := range r.state.budgets {
		if b.OwnerID == id {
			r.deleteBudgetLocked(budgetID)
		}
	}
	for txID, tx := range r.state.transactions {
		if tx.UserID == id {
			delete(r.state.transactions, txID)
			r.state.untrack(txID)
		}
	}
	for budgetID, members := range r.state.budgetUsers {
		if _, ok := members[id]; ok {
			delete(members, id)
			r.state.untrack(shareKey(budgetID, id))
		}
	}
	delete(r.state.users, id)
	r.state.untrack(id)
	return nil
}

// Budget repository methods
func (r *MemoryRepository) CreateBudget(ctx context.Context, budget *models.Budget) error {
	defer r.lock()()

	if _, ok := r.state.users[budget.OwnerID]; !ok {
		return fmt.Errorf("%w: budgets_owner_id_fkey", ErrReferenced)
	}
	for _, b := range r.state.budgets {
		if b.OwnerID == budget.OwnerID && b.Name == budget.Name {
			return fmt.Errorf("%w: budgets_owner_name_key", ErrDuplicate)
		}
	}

	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	budget.CreatedAt = now
	budget.UpdatedAt = now

	r.state.budgets[budget.ID] = *budget
	r.state.track(budget.ID)
	return nil
}

func (r *MemoryRepository) GetBudget(ctx context.Context, budgetID string) (*models.Budget, error) {
	defer r.rlock()()

	b, ok := r.state.budgets[budgetID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *MemoryRepository) GetBudgetByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Budget, error) {
	defer r.rlock()()

	for _, b := range r.state.budgets {
		if b.OwnerID == ownerID && b.Name == name {
			budget := b
			return &budget, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) UpdateBudgetName(ctx context.Context, budgetID, name string) error {
	defer r.lock()()

	budget, ok := r.state.budgets[budgetID]
	if !ok {
		return nil
	}
	for id, b := range r.state.budgets {
		if id != budgetID && b.OwnerID == budget.OwnerID && b.Name == name {
			return fmt.Errorf("%w: budgets_owner_name_key", ErrDuplicate)
		}
	}

	budget.Name = name
	budget.UpdatedAt = time.Now().UTC()
	r.state.budgets[budgetID] = budget
	return nil
}

func (r *MemoryRepository) DeleteBudget(ctx context.Context, budgetID string) error {
	defer r.lock()()

	r.deleteBudgetLocked(budgetID)
	return nil
}

func (r *MemoryRepository) deleteBudgetLocked(budgetID string) {
	for txID, tx := range r.state.transactions {
		if tx.BudgetID == budgetID {
			delete(r.state.transactions, txID)
			r.state.untrack(txID)
		}
	}
	for userID := range r.state.budgetUsers[budgetID] {
		r.state.untrack(shareKey(budgetID, userID))
	}
	delete(r.state.budgetUsers, budgetID)
	delete(r.state.budgets, budgetID)
	r.state.untrack(budgetID)
}

func (r *MemoryRepository) listBudgets(match func(b models.Budget) bool) []models.Budget {
	var ids []string
	for id, b := range r.state.budgets {
		if match(b) {
			ids = append(ids, id)
		}
	}
	r.sortBySeq(ids)

	budgets := make([]models.Budget, 0, len(ids))
	for _, id := range ids {
		budgets = append(budgets, r.state.budgets[id])
	}
	return budgets
}

func (r *MemoryRepository) isMember(budgetID, userID string) bool {
	_, ok := r.state.budgetUsers[budgetID][userID]
	return ok
}

func (r *MemoryRepository) ListOwnedBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	defer r.rlock()()

	return r.listBudgets(func(b models.Budget) bool {
		return b.OwnerID == userID
	}), nil
}

func (r *MemoryRepository) ListSharedBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	defer r.rlock()()

	return r.listBudgets(func(b models.Budget) bool {
		return b.OwnerID != userID && r.isMember(b.ID, userID)
	}), nil
}

func (r *MemoryRepository) ListUserBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	defer r.rlock()()

	return r.listBudgets(func(b models.Budget) bool {
		return b.OwnerID == userID || r.isMember(b.ID, userID)
	}), nil
}

// Budget sharing repository methods
func (r *MemoryRepository) AddUserToBudget(ctx context.Context, budgetUser *models.BudgetUser) error {
	defer r.lock()()

	if _, ok := r.state.budgets[budgetUser.BudgetID]; !ok {
		return fmt.Errorf("%w: budget_users_budget_id_fkey", ErrReferenced)
	}
	if _, ok := r.state.users[budgetUser.UserID]; !ok {
		return fmt.Errorf("%w: budget_users_user_id_fkey", ErrReferenced)
	}
	if r.isMember(budgetUser.BudgetID, budgetUser.UserID) {
		return fmt.Errorf("%w: budget_users_pkey", ErrDuplicate)
	}

	if budgetUser.CreatedAt.IsZero() {
		budgetUser.CreatedAt = time.Now().UTC()
	}
	members, ok := r.state.budgetUsers[budgetUser.BudgetID]
	if !ok {
		members = make(map[string]time.Time)
		r.state.budgetUsers[budgetUser.BudgetID] = members
	}
	members[budgetUser.UserID] = budgetUser.CreatedAt
	r.state.track(shareKey(budgetUser.BudgetID, budgetUser.UserID))
	return nil
}

func (r *MemoryRepository) RemoveUserFromBudget(ctx context.Context, budgetID, userID string) (bool, error) {
	defer r.lock()()

	if !r.isMember(budgetID, userID) {
		return false, nil
	}
	delete(r.state.budgetUsers[budgetID], userID)
	r.state.untrack(shareKey(budgetID, userID))
	return true, nil
}

func (r *MemoryRepository) GetBudgetUsers(ctx context.Context, budgetID string) ([]models.User, error) {
	defer r.rlock()()

	members := r.state.budgetUsers[budgetID]
	userIDs := make([]string, 0, len(members))
	for id := range members {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool {
		return r.state.seq[shareKey(budgetID, userIDs[i])] < r.state.seq[shareKey(budgetID, userIDs[j])]
	})

	users := make([]models.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := r.state.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// Category repository methods
func inScope(c models.Category, scope models.CategoryScope) bool {
	if scope.Kind == models.ScopeDefault {
		return c.IsDefault && c.UserID == nil
	}
	return !c.IsDefault && c.UserID != nil && *c.UserID == scope.OwnerID
}

func (r *MemoryRepository) categoryConflict(candidate models.Category) bool {
	for id, c := range r.state.categories {
		if id == candidate.ID {
			continue
		}
		if c.Name == candidate.Name &&
			c.TransactionType == candidate.TransactionType &&
			inScope(c, candidate.Scope()) {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	defer r.lock()()

	if category.UserID != nil {
		if _, ok := r.state.users[*category.UserID]; !ok {
			return fmt.Errorf("%w: categories_user_id_fkey", ErrReferenced)
		}
	}
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	if r.categoryConflict(*category) {
		return fmt.Errorf("%w: categories name", ErrDuplicate)
	}

	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	r.state.categories[category.ID] = *category
	r.state.track(category.ID)
	return nil
}

func (r *MemoryRepository) GetCategory(ctx context.Context, id string, scope models.CategoryScope) (*models.Category, error) {
	defer r.rlock()()

	c, ok := r.state.categories[id]
	if !ok || !inScope(c, scope) {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) FindCategoryByName(
	ctx context.Context,
	name string,
	txType models.TransactionType,
	scope models.CategoryScope,
) (*models.Category, error) {
	defer r.rlock()()

	for _, c := range r.state.categories {
		if c.Name == name && c.TransactionType == txType && inScope(c, scope) {
			category := c
			return &category, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) listCategories(match func(c models.Category) bool) []models.Category {
	var ids []string
	for id, c := range r.state.categories {
		if match(c) {
			ids = append(ids, id)
		}
	}
	r.sortBySeq(ids)

	categories := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		categories = append(categories, r.state.categories[id])
	}
	return categories
}

func (r *MemoryRepository) ListCategories(ctx context.Context, q CategoryQuery) ([]models.Category, error) {
	defer r.rlock()()

	return r.listCategories(func(c models.Category) bool {
		if q.Type != nil && c.TransactionType != *q.Type {
			return false
		}
		if q.IncludeDefaults && inScope(c, models.DefaultScope()) {
			return true
		}
		return q.OwnerID != "" && inScope(c, models.CustomScope(q.OwnerID))
	}), nil
}

func (r *MemoryRepository) ListCustomCategoriesByName(
	ctx context.Context,
	name string,
	txType models.TransactionType,
) ([]models.Category, error) {
	defer r.rlock()()

	return r.listCategories(func(c models.Category) bool {
		return !c.IsDefault && c.Name == name && c.TransactionType == txType
	}), nil
}

func (r *MemoryRepository) CountCustomCategories(ctx context.Context, userID string) (int, error) {
	defer r.rlock()()

	count := 0
	for _, c := range r.state.categories {
		if c.UserID != nil && *c.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	defer r.lock()()

	existing, ok := r.state.categories[category.ID]
	if !ok {
		return nil
	}
	existing.Name = category.Name
	existing.TransactionType = category.TransactionType
	if r.categoryConflict(existing) {
		return fmt.Errorf("%w: categories name", ErrDuplicate)
	}

	existing.UpdatedAt = time.Now().UTC()
	category.UpdatedAt = existing.UpdatedAt
	r.state.categories[category.ID] = existing
	return nil
}

func (r *MemoryRepository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	defer r.lock()()

	if _, ok := r.state.categories[id]; !ok {
		return false, nil
	}
	for txID, tx := range r.state.transactions {
		if tx.CategoryID != nil && *tx.CategoryID == id {
			tx.CategoryID = nil
			r.state.transactions[txID] = tx
		}
	}
	delete(r.state.categories, id)
	r.state.untrack(id)
	return true, nil
}

// Transaction repository methods
func (r *MemoryRepository) checkTransactionRefs(tx *models.Transaction) error {
	if _, ok := r.state.users[tx.UserID]; !ok {
		return fmt.Errorf("%w: transactions_user_id_fkey", ErrReferenced)
	}
	if _, ok := r.state.budgets[tx.BudgetID]; !ok {
		return fmt.Errorf("%w: transactions_budget_id_fkey", ErrReferenced)
	}
	if tx.CategoryID != nil {
		if _, ok := r.state.categories[*tx.CategoryID]; !ok {
			return fmt.Errorf("%w: transactions_category_id_fkey", ErrReferenced)
		}
	}
	return nil
}

// withCategoryName fills the joined category name the SQL store selects
func (r *MemoryRepository) withCategoryName(tx models.Transaction) models.Transaction {
	tx.CategoryName = nil
	if tx.CategoryID != nil {
		if c, ok := r.state.categories[*tx.CategoryID]; ok {
			name := c.Name
			tx.CategoryName = &name
		}
	}
	return tx
}

func (r *MemoryRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	defer r.lock()()

	if err := r.checkTransactionRefs(tx); err != nil {
		return err
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	stored := *tx
	stored.CategoryName = nil
	r.state.transactions[tx.ID] = stored
	r.state.track(tx.ID)
	return nil
}

func (r *MemoryRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	defer r.rlock()()

	tx, ok := r.state.transactions[id]
	if !ok {
		return nil, nil
	}
	tx = r.withCategoryName(tx)
	return &tx, nil
}

func (r *MemoryRepository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	defer r.lock()()

	existing, ok := r.state.transactions[tx.ID]
	if !ok {
		return nil
	}
	if err := r.checkTransactionRefs(tx); err != nil {
		return err
	}

	existing.Type = tx.Type
	existing.Amount = tx.Amount
	existing.Date = tx.Date
	existing.Comment = tx.Comment
	existing.CategoryID = tx.CategoryID
	existing.UpdatedAt = time.Now().UTC()
	tx.UpdatedAt = existing.UpdatedAt

	r.state.transactions[tx.ID] = existing
	return nil
}

func (r *MemoryRepository) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	defer r.lock()()

	if _, ok := r.state.transactions[id]; !ok {
		return false, nil
	}
	delete(r.state.transactions, id)
	r.state.untrack(id)
	return true, nil
}

func (r *MemoryRepository) ListTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error) {
	defer r.rlock()()

	txs := []models.Transaction{}
	for _, stored := range r.state.transactions {
		tx := r.withCategoryName(stored)

		if q.BudgetID != "" && tx.BudgetID != q.BudgetID {
			continue
		}
		if q.UserID != "" && tx.UserID != q.UserID {
			continue
		}
		if q.Type != nil && tx.Type != *q.Type {
			continue
		}
		if q.CategoryID != "" && (tx.CategoryID == nil || *tx.CategoryID != q.CategoryID) {
			continue
		}
		if q.CategoryName != "" && (tx.CategoryName == nil || *tx.CategoryName != q.CategoryName) {
			continue
		}
		if q.Start != nil && tx.Date.Before(*q.Start) {
			continue
		}
		if q.End != nil && tx.Date.After(*q.End) {
			continue
		}
		txs = append(txs, tx)
	}

	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return r.state.seq[txs[i].ID] < r.state.seq[txs[j].ID]
	})
	return txs, nil
}

func (r *MemoryRepository) ReassignCategory(ctx context.Context, fromID, toID string) (int64, error) {
	defer r.lock()()

	if _, ok := r.state.categories[toID]; !ok {
		return 0, fmt.Errorf("%w: transactions_category_id_fkey", ErrReferenced)
	}

	var n int64
	now := time.Now().UTC()
	for id, tx := range r.state.transactions {
		if tx.CategoryID != nil && *tx.CategoryID == fromID {
			target := toID
			tx.CategoryID = &target
			tx.UpdatedAt = now
			r.state.transactions[id] = tx
			n++
		}
	}
	return n, nil
}
