package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/GameCatalog/internal/domain"
	"github.com/utafrali/GameCatalog/internal/engine/memory"
	apperrors "github.com/utafrali/GameCatalog/pkg/errors"
)

// --- Mock Repository ---

type mockGameRepository struct {
	mock.Mock
}

func (m *mockGameRepository) Create(ctx context.Context, game *domain.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *mockGameRepository) GetByID(ctx context.Context, id int64) (*domain.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Game), args.Error(1)
}

func (m *mockGameRepository) List(ctx context.Context) ([]domain.Game, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Game), args.Error(1)
}

func (m *mockGameRepository) Update(ctx context.Context, game *domain.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *mockGameRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- In-memory Repository ---

// memRepo behaves like the PostgreSQL repository: sequential IDs and
// not-found errors on missing rows.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	games  map[int64]domain.Game
}

func newMemRepo() *memRepo {
	return &memRepo{games: make(map[int64]domain.Game)}
}

func (r *memRepo) Create(_ context.Context, game *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	game.ID = r.nextID
	r.games[game.ID] = *game
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*domain.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, apperrors.NotFound("game", id)
	}
	return &g, nil
}

func (r *memRepo) List(_ context.Context) ([]domain.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) Update(_ context.Context, game *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[game.ID]; !ok {
		return apperrors.NotFound("game", game.ID)
	}
	r.games[game.ID] = *game
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[id]; !ok {
		return apperrors.NotFound("game", id)
	}
	delete(r.games, id)
	return nil
}

// --- Engines ---

var errEngineDown = errors.New("engine unavailable")

// failingEngine wraps the memory engine and fails selected operations.
type failingEngine struct {
	*memory.Engine
	failIndex bool
	failReads bool

	mu         sync.Mutex
	bulkSizes  []int
	fetchCalls int
}

func newFailingEngine() *failingEngine {
	return &failingEngine{Engine: memory.New()}
}

func (e *failingEngine) Index(ctx context.Context, doc *domain.GameDocument) error {
	if e.failIndex {
		return errEngineDown
	}
	return e.Engine.Index(ctx, doc)
}

func (e *failingEngine) BulkIndex(ctx context.Context, docs []domain.GameDocument) error {
	e.mu.Lock()
	e.bulkSizes = append(e.bulkSizes, len(docs))
	e.mu.Unlock()
	if e.failIndex {
		return errEngineDown
	}
	return e.Engine.BulkIndex(ctx, docs)
}

func (e *failingEngine) Search(ctx context.Context, term string, size int) ([]domain.GameDocument, error) {
	if e.failReads {
		return nil, errEngineDown
	}
	return e.Engine.Search(ctx, term, size)
}

func (e *failingEngine) MostRecent(ctx context.Context, size int) ([]domain.GameDocument, error) {
	if e.failReads {
		return nil, errEngineDown
	}
	return e.Engine.MostRecent(ctx, size)
}

func (e *failingEngine) FetchAll(ctx context.Context) ([]domain.GameDocument, error) {
	e.mu.Lock()
	e.fetchCalls++
	e.mu.Unlock()
	if e.failReads {
		return nil, errEngineDown
	}
	return e.Engine.FetchAll(ctx)
}

// --- Publisher ---

type recordingPublisher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (p *recordingPublisher) PublishReindexRequested(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCatalog(repo *memRepo, eng *failingEngine, pub ReindexPublisher) *CatalogService {
	logger := newTestLogger()
	syncer := NewIndexSynchronizer(eng, repo, pub, logger)
	return NewCatalogService(repo, syncer, logger)
}

func newGameInput(name, genre string, purchases int64, rating float64) *CreateGameInput {
	return &CreateGameInput{
		Code:          1001,
		Name:          name,
		Description:   name + " description",
		ReleaseDate:   time.Date(2022, 2, 25, 0, 0, 0, 0, time.UTC),
		PurchaseCount: purchases,
		AverageRating: rating,
		Genre:         genre,
	}
}

func seedDoc(id int64, genre string, purchases int64, rating float64) domain.GameDocument {
	return domain.GameDocument{
		ID:            id,
		Name:          genre + " game",
		Description:   "seed",
		Genre:         genre,
		PurchaseCount: purchases,
		AverageRating: rating,
		ReleaseDate:   time.Date(2000+int(id), 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
