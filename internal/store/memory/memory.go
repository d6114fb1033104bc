// Package memory provides map-backed repositories with the same contracts
// as the Postgres stores, including case-insensitive slug and email
// uniqueness and re-parenting on category delete. It backs unit tests of
// the services and handlers.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/models"
)

// DB holds every table. Create one with New and hand out the typed stores.
type DB struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]models.User
	categories map[uuid.UUID]models.Category
	articles   map[uuid.UUID]models.Article
	fail       error
	now        func() time.Time
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{
		users:      make(map[uuid.UUID]models.User),
		categories: make(map[uuid.UUID]models.Category),
		articles:   make(map[uuid.UUID]models.Article),
		now:        time.Now,
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (db *DB) FailWith(err error) {
	db.mu.Lock()
	db.fail = err
	db.mu.Unlock()
}

// SetClock replaces the time source used for created_at and updated_at.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	db.now = now
	db.mu.Unlock()
}

// Categories returns the category repository.
func (db *DB) Categories() *CategoryStore { return &CategoryStore{db: db} }

// Articles returns the article repository.
func (db *DB) Articles() *ArticleStore { return &ArticleStore{db: db} }

// Users returns the user repository.
func (db *DB) Users() *UserStore { return &UserStore{db: db} }

// PutCategory stores c as-is, bypassing validation. Tests use it to
// plant rows the services would refuse, such as cycles.
func (db *DB) PutCategory(c models.Category) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.categories[c.ID] = c
}

// CategoryStore implements category.Repository.
type CategoryStore struct{ db *DB }

func (s *CategoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	c, ok := s.db.categories[id]
	if !ok {
		return nil, nil
	}
	s.db.countCategory(&c)
	return &c, nil
}

func (s *CategoryStore) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	for _, c := range s.db.categories {
		if strings.EqualFold(c.Slug, slug) {
			s.db.countCategory(&c)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *CategoryStore) ListByParent(_ context.Context, parentID *uuid.UUID) ([]models.Category, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	var out []models.Category
	for _, c := range s.db.categories {
		if (parentID == nil && c.ParentID == nil) || (parentID != nil && c.HasParent(*parentID)) {
			s.db.countCategory(&c)
			out = append(out, c)
		}
	}
	sortCategories(out)
	return out, nil
}

func (s *CategoryStore) List(_ context.Context) ([]models.Category, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	out := make([]models.Category, 0, len(s.db.categories))
	for _, c := range s.db.categories {
		s.db.countCategory(&c)
		out = append(out, c)
	}
	sortCategories(out)
	return out, nil
}

func (s *CategoryStore) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	if s.db.categorySlugTaken(c.Slug, uuid.Nil) {
		return nil, apperr.Invalid("slug", "This slug is already in use. Please choose another one.")
	}
	row := *c
	row.ID = uuid.New()
	row.CreatedAt = s.db.now()
	row.UpdatedAt = row.CreatedAt
	s.db.categories[row.ID] = row
	return &row, nil
}

func (s *CategoryStore) Update(_ context.Context, c *models.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fail != nil {
		return s.db.fail
	}
	existing, ok := s.db.categories[c.ID]
	if !ok {
		return apperr.NotFound("category", c.ID)
	}
	if s.db.categorySlugTaken(c.Slug, c.ID) {
		return apperr.Invalid("slug", "This slug is already in use. Please choose another one.")
	}
	existing.Name = c.Name
	existing.Slug = c.Slug
	existing.Description = c.Description
	existing.ParentID = c.ParentID
	existing.UpdatedAt = s.db.now()
	s.db.categories[c.ID] = existing
	c.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *CategoryStore) Delete(_ context.Context, id uuid.UUID) (*models.CategoryDeletion, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	target, ok := s.db.categories[id]
	if !ok {
		return &models.CategoryDeletion{}, nil
	}

	result := &models.CategoryDeletion{}
	now := s.db.now()
	for cid, c := range s.db.categories {
		if cid != id && c.HasParent(id) {
			c.ParentID = target.ParentID
			if target.HasParent(cid) {
				c.ParentID = nil
			}
			c.UpdatedAt = now
			s.db.categories[cid] = c
			result.PromotedChildren++
		}
	}
	for aid, a := range s.db.articles {
		if a.CategoryID != nil && *a.CategoryID == id {
			a.CategoryID = nil
			s.db.articles[aid] = a
			result.DetachedArticles++
		}
	}
	delete(s.db.categories, id)
	return result, nil
}

// categorySlugTaken must be called with mu held.
func (db *DB) categorySlugTaken(slug string, self uuid.UUID) bool {
	for id, c := range db.categories {
		if id != self && strings.EqualFold(c.Slug, slug) {
			return true
		}
	}
	return false
}

// countCategory fills the virtual count fields. mu must be held.
func (db *DB) countCategory(c *models.Category) {
	c.ChildCount, c.ArticleCount = 0, 0
	for _, other := range db.categories {
		if other.ID != c.ID && other.HasParent(c.ID) {
			c.ChildCount++
		}
	}
	for _, a := range db.articles {
		if a.CategoryID != nil && *a.CategoryID == c.ID {
			c.ArticleCount++
		}
	}
}

func sortCategories(cs []models.Category) {
	slices.SortFunc(cs, func(a, b models.Category) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

// ArticleStore implements article.Repository.
type ArticleStore struct{ db *DB }

func (s *ArticleStore) FindByID(_ context.Context, id uuid.UUID) (*models.Article, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	a, ok := s.db.articles[id]
	if !ok {
		return nil, nil
	}
	s.db.joinArticle(&a)
	return &a, nil
}

func (s *ArticleStore) FindBySlug(_ context.Context, slug string) (*models.Article, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	for _, a := range s.db.articles {
		if strings.EqualFold(a.Slug, slug) {
			s.db.joinArticle(&a)
			return &a, nil
		}
	}
	return nil, nil
}

func (s *ArticleStore) List(_ context.Context, filter models.ArticleFilter) ([]models.Article, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	var out []models.Article
	for _, a := range s.db.articles {
		if filter.PublishedOnly && !a.IsPublished {
			if filter.OrAuthor == nil || a.AuthorID != *filter.OrAuthor {
				continue
			}
		}
		if len(filter.CategoryIDs) > 0 && (a.CategoryID == nil || !slices.Contains(filter.CategoryIDs, *a.CategoryID)) {
			continue
		}
		s.db.joinArticle(&a)
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Article) int {
		return sortTime(&b).Compare(sortTime(&a))
	})
	return out, nil
}

// sortTime mirrors COALESCE(published_at, updated_at) in the SQL store.
func sortTime(a *models.Article) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.UpdatedAt
}

func (s *ArticleStore) Create(_ context.Context, a *models.Article) (*models.Article, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	if s.db.articleSlugTaken(a.Slug, uuid.Nil) {
		return nil, apperr.Invalid("slug", "This slug is already in use. Please choose another one.")
	}
	row := *a
	row.ID = uuid.New()
	row.CreatedAt = s.db.now()
	row.UpdatedAt = row.CreatedAt
	s.db.articles[row.ID] = row
	s.db.joinArticle(&row)
	return &row, nil
}

func (s *ArticleStore) Update(_ context.Context, a *models.Article) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fail != nil {
		return s.db.fail
	}
	if _, ok := s.db.articles[a.ID]; !ok {
		return apperr.NotFound("article", a.ID)
	}
	if s.db.articleSlugTaken(a.Slug, a.ID) {
		return apperr.Invalid("slug", "This slug is already in use. Please choose another one.")
	}
	a.UpdatedAt = s.db.now()
	row := *a
	row.CategoryName, row.AuthorName = "", ""
	s.db.articles[a.ID] = row
	return nil
}

func (s *ArticleStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fail != nil {
		return s.db.fail
	}
	delete(s.db.articles, id)
	return nil
}

// articleSlugTaken must be called with mu held.
func (db *DB) articleSlugTaken(slug string, self uuid.UUID) bool {
	for id, a := range db.articles {
		if id != self && strings.EqualFold(a.Slug, slug) {
			return true
		}
	}
	return false
}

// joinArticle fills the virtual name fields. mu must be held.
func (db *DB) joinArticle(a *models.Article) {
	a.CategoryName, a.AuthorName = "", ""
	if a.CategoryID != nil {
		if c, ok := db.categories[*a.CategoryID]; ok {
			a.CategoryName = c.Name
		}
	}
	if u, ok := db.users[a.AuthorID]; ok {
		a.AuthorName = u.DisplayName
	}
}

// UserStore implements identity.UserRepository.
type UserStore struct{ db *DB }

func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	u, ok := s.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *UserStore) Create(_ context.Context, u *models.User) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.fail != nil {
		return nil, s.db.fail
	}
	for _, existing := range s.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, apperr.Invalid("email", "An account with this email already exists.")
		}
	}
	row := *u
	row.ID = uuid.New()
	row.CreatedAt = s.db.now()
	row.UpdatedAt = row.CreatedAt
	s.db.users[row.ID] = row
	return &row, nil
}

func (s *UserStore) Count(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.fail != nil {
		return 0, s.db.fail
	}
	return len(s.db.users), nil
}
