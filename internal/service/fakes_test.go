package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AP5B/backend/internal/mercadopago"
	"github.com/AP5B/backend/internal/models"
	"github.com/AP5B/backend/internal/store"
)

// In-memory fakes backing the service tests. They keep real state so the
// lifecycle scenarios can run end to end without a database.

type fakeRequestStore struct {
	mu           sync.Mutex
	requests     map[int64]*models.ClassRequest
	transactions map[int64]*models.Transaction
	nextReqID    int64
	nextTxnID    int64
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{
		requests:     make(map[int64]*models.ClassRequest),
		transactions: make(map[int64]*models.Transaction),
	}
}

func (f *fakeRequestStore) CreateClassRequest(_ context.Context, req *models.ClassRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.ClassOfferID == req.ClassOfferID && r.UserID == req.UserID &&
			r.Day == req.Day && r.Slot == req.Slot {
			return store.ErrDuplicateBooking
		}
	}
	f.nextReqID++
	req.ID = f.nextReqID
	req.CreatedAt = time.Now()
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeRequestStore) GetClassRequestByID(_ context.Context, id int64) (*models.ClassRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestStore) FindClassRequestBySlot(_ context.Context, classOfferID, userID int64, day, slot int) (*models.ClassRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.ClassOfferID == classOfferID && r.UserID == userID && r.Day == day && r.Slot == slot {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRequestStore) ListClassRequestsByUser(_ context.Context, userID int64, limit, offset int) ([]models.ClassRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ClassRequest
	for _, r := range f.requests {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), int64(len(out)), nil
}

func (f *fakeRequestStore) ListClassRequestsByTutor(context.Context, int64, int, int) ([]models.ClassRequest, int64, error) {
	return nil, 0, nil
}

func (f *fakeRequestStore) ListClassRequestsByOffer(_ context.Context, classOfferID int64, limit, offset int) ([]models.ClassRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ClassRequest
	for _, r := range f.requests {
		if r.ClassOfferID == classOfferID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, limit, offset), int64(len(out)), nil
}

func (f *fakeRequestStore) ListUserRequestsInOffer(_ context.Context, userID, classOfferID int64) ([]models.ClassRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ClassRequest
	for _, r := range f.requests {
		if r.UserID == userID && r.ClassOfferID == classOfferID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRequestStore) DeleteClassRequest(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.requests, id)
	return nil
}

func (f *fakeRequestStore) UpdateRequestState(_ context.Context, id int64, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req, ok := f.requests[id]; ok {
		req.State = state
	}
	return nil
}

func (f *fakeRequestStore) TransitionRequestState(_ context.Context, id int64, from []string, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if req.State == s {
			req.State = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) CreateTransaction(_ context.Context, txn *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTxnID++
	txn.ID = f.nextTxnID
	txn.CreatedAt = time.Now().Add(time.Duration(f.nextTxnID) * time.Millisecond)
	cp := *txn
	f.transactions[txn.ID] = &cp
	return nil
}

func (f *fakeRequestStore) LatestTransaction(_ context.Context, classRequestID int64) (*models.Transaction, error) {
	return f.latest(classRequestID, nil), nil
}

func (f *fakeRequestStore) LatestTransactionWithStatus(_ context.Context, classRequestID int64, statuses []string) (*models.Transaction, error) {
	return f.latest(classRequestID, statuses), nil
}

func (f *fakeRequestStore) latest(classRequestID int64, statuses []string) *models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.Transaction
	for _, t := range f.transactions {
		if t.ClassRequestID != classRequestID {
			continue
		}
		if statuses != nil && !contains(statuses, t.Status) {
			continue
		}
		if best == nil || t.ID > best.ID {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}

func (f *fakeRequestStore) UpdateTransactionStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.transactions[id]; ok {
		txn.Status = status
	}
	return nil
}

func (f *fakeRequestStore) MarkRequestPaid(_ context.Context, classRequestID, transactionID int64, paymentID, status, confirmCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[classRequestID]
	if !ok {
		return nil
	}
	if req.State != models.StatePaymentPending && req.State != models.StatePaid {
		return nil
	}
	if txn, ok := f.transactions[transactionID]; ok {
		txn.PaymentID = &paymentID
		txn.Status = status
		txn.ConfirmCode = &confirmCode
	}
	req.State = models.StatePaid
	return nil
}

func paginate(rows []models.ClassRequest, limit, offset int) []models.ClassRequest {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

type fakeOfferStore struct {
	mu     sync.Mutex
	offers map[int64]*models.ClassOffer
	nextID int64
}

func newFakeOfferStore() *fakeOfferStore {
	return &fakeOfferStore{offers: make(map[int64]*models.ClassOffer)}
}

func (f *fakeOfferStore) addOffer(offer models.ClassOffer) *models.ClassOffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offer.ID == 0 {
		f.nextID++
		offer.ID = f.nextID
	} else if offer.ID > f.nextID {
		f.nextID = offer.ID
	}
	f.offers[offer.ID] = &offer
	return &offer
}

func (f *fakeOfferStore) GetClassOfferByID(_ context.Context, id int64) (*models.ClassOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	offer, ok := f.offers[id]
	if !ok || offer.IsDeleted {
		return nil, nil
	}
	cp := *offer
	return &cp, nil
}

func (f *fakeOfferStore) ListClassOffers(context.Context, store.OfferFilter) ([]models.ClassOffer, int64, error) {
	return nil, 0, nil
}

func (f *fakeOfferStore) ListClassOffersByAuthor(_ context.Context, authorID int64) ([]models.ClassOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ClassOffer
	for _, o := range f.offers {
		if o.AuthorID == authorID && !o.IsDeleted {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOfferStore) CreateClassOffer(_ context.Context, offer *models.ClassOffer) error {
	created := f.addOffer(*offer)
	offer.ID = created.ID
	return nil
}

func (f *fakeOfferStore) UpdateClassOffer(_ context.Context, offer *models.ClassOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *offer
	f.offers[offer.ID] = &cp
	return nil
}

func (f *fakeOfferStore) SoftDeleteClassOffer(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offer, ok := f.offers[id]; ok {
		offer.IsDeleted = true
	}
	return nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[int64]*models.User
	creds map[int64]*models.MercadopagoInfo
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users: make(map[int64]*models.User),
		creds: make(map[int64]*models.MercadopagoInfo),
	}
}

func (f *fakeUserStore) addUser(user models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = &user
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserStore) GetMercadopagoInfo(_ context.Context, userID int64) (*models.MercadopagoInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.creds[userID]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

func (f *fakeUserStore) UpsertMercadopagoInfo(_ context.Context, info *models.MercadopagoInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *info
	f.creds[info.UserID] = &cp
	return nil
}

func (f *fakeUserStore) SoftDeleteUserCascade(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		user.IsDeleted = true
	}
	return nil
}

type fakeReviewStore struct {
	mu      sync.Mutex
	reviews map[int64]*models.Review
	nextID  int64
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{reviews: make(map[int64]*models.Review)}
}

func (f *fakeReviewStore) CreateReview(_ context.Context, review *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	review.ID = f.nextID
	cp := *review
	f.reviews[review.ID] = &cp
	return nil
}

func (f *fakeReviewStore) GetReviewByID(_ context.Context, id int64) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	review, ok := f.reviews[id]
	if !ok {
		return nil, nil
	}
	cp := *review
	return &cp, nil
}

func (f *fakeReviewStore) GetReviewByAuthorAndTeacher(_ context.Context, authorID, teacherID int64) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.AuthorID == authorID && r.TeacherID == teacherID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeReviewStore) ListTeacherReviews(_ context.Context, teacherID int64) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Review
	for _, r := range f.reviews {
		if r.TeacherID == teacherID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviewStore) ListUserReviews(_ context.Context, authorID int64) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Review
	for _, r := range f.reviews {
		if r.AuthorID == authorID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviewStore) UpdateReview(_ context.Context, review *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *review
	f.reviews[review.ID] = &cp
	return nil
}

func (f *fakeReviewStore) DeleteReview(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reviews, id)
	return nil
}

type fakeAvailabilityStore struct {
	mu    sync.Mutex
	cells map[int64]map[[2]int]bool
}

func newFakeAvailabilityStore() *fakeAvailabilityStore {
	return &fakeAvailabilityStore{cells: make(map[int64]map[[2]int]bool)}
}

func (f *fakeAvailabilityStore) SaveAvailabilities(_ context.Context, teacherID int64, cells []models.Availability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.cells[teacherID]
	if !ok {
		grid = make(map[[2]int]bool)
		f.cells[teacherID] = grid
	}
	for _, c := range cells {
		key := [2]int{c.Day, c.Slot}
		if grid[key] {
			return store.ErrSlotTaken
		}
		grid[key] = true
	}
	return nil
}

func (f *fakeAvailabilityStore) ListAvailabilities(_ context.Context, teacherID int64) ([]models.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Availability
	for key := range f.cells[teacherID] {
		out = append(out, models.Availability{TeacherID: teacherID, Day: key[0], Slot: key[1]})
	}
	return out, nil
}

func (f *fakeAvailabilityStore) DeleteAvailabilities(_ context.Context, teacherID int64, cells []models.Availability) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	grid := f.cells[teacherID]
	for _, c := range cells {
		delete(grid, [2]int{c.Day, c.Slot})
	}
	return nil
}

// fakeProvider answers provider calls from canned responses and records what
// was asked of it.
type fakeProvider struct {
	mu sync.Mutex

	tokens       *mercadopago.OAuthTokens
	tokenErr     error
	refreshCalls int

	preferences  map[string]*mercadopago.Preference
	createdPrefs int
	prefErr      error
	lastToken    string

	refund    *mercadopago.Refund
	refundErr error
	refunded  []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{preferences: make(map[string]*mercadopago.Preference)}
}

func (f *fakeProvider) CreateOAuthToken(_ context.Context, code string) (*mercadopago.OAuthTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.tokens, nil
}

func (f *fakeProvider) RefreshOAuthToken(_ context.Context, refreshToken string) (*mercadopago.OAuthTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return f.tokens, nil
}

func (f *fakeProvider) CreatePreference(_ context.Context, accessToken string, req *mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefErr != nil {
		return nil, f.prefErr
	}
	f.createdPrefs++
	f.lastToken = accessToken
	pref := &mercadopago.Preference{
		ID:        "pref-" + req.Items[0].ID,
		InitPoint: "https://pay.example.com/pref-" + req.Items[0].ID,
		Items:     req.Items,
		BackURLs:  req.BackURLs,
	}
	f.preferences[pref.ID] = pref
	return pref, nil
}

func (f *fakeProvider) GetPreference(_ context.Context, accessToken, preferenceID string) (*mercadopago.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastToken = accessToken
	pref, ok := f.preferences[preferenceID]
	if !ok {
		return nil, &mercadopago.APIError{Message: "not found", StatusCode: 404}
	}
	return pref, nil
}

func (f *fakeProvider) RefundPayment(_ context.Context, paymentID string) (*mercadopago.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunded = append(f.refunded, paymentID)
	if f.refund != nil {
		return f.refund, nil
	}
	return &mercadopago.Refund{ID: 1, Status: "approved"}, nil
}

// fakeCache is a plain map-backed Cache.
type fakeCache struct {
	mu    sync.Mutex
	locks map[string]bool
	keys  map[string]bool
	prefs map[string]*mercadopago.Preference
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		locks: make(map[string]bool),
		keys:  make(map[string]bool),
		prefs: make(map[string]*mercadopago.Preference),
	}
}

func (f *fakeCache) AcquireLock(_ context.Context, lockKey string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[lockKey] {
		return false, nil
	}
	f.locks[lockKey] = true
	return true, nil
}

func (f *fakeCache) ReleaseLock(_ context.Context, lockKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, lockKey)
	return nil
}

func (f *fakeCache) SetIdempotencyKey(_ context.Context, key string, _ interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = true
	return nil
}

func (f *fakeCache) CheckIdempotencyKey(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

func (f *fakeCache) CachePreference(_ context.Context, pref *mercadopago.Preference, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[pref.ID] = pref
	return nil
}

func (f *fakeCache) GetCachedPreference(_ context.Context, preferenceID string) (*mercadopago.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs[preferenceID], nil
}

// fakeProducer satisfies broker's producer contract and captures events.
type fakeProducer struct {
	mu     sync.Mutex
	events []interface{}
}

func (f *fakeProducer) PublishEvent(_ context.Context, _ string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
