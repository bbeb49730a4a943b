package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/text/language"

	"github.com/learnpro/learnpro/pkg/logger"
)

// Store is the persistence the catalog service needs. *Repository implements it.
type Store interface {
	ListCourses(ctx context.Context, f CourseFilter) ([]Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*Course, error)
	ListLessons(ctx context.Context, courseID uuid.UUID, publishedOnly bool) ([]Lesson, error)
	GetLesson(ctx context.Context, courseID, lessonID uuid.UUID) (*Lesson, error)
	CreateCourse(ctx context.Context, in CourseInput) (*Course, error)
	UpdateCourse(ctx context.Context, id uuid.UUID, u CourseUpdate) (*Course, error)
	CreateLesson(ctx context.Context, in LessonInput) (*Lesson, error)
	ListPlans(ctx context.Context, publicOnly bool) ([]Plan, error)
	FindPlan(ctx context.Context, where squirrel.Sqlizer) (*Plan, error)
	UpsertPlan(ctx context.Context, p Plan) (uuid.UUID, error)
}

// Service serves the course catalog and plan list. Course details are
// cached in process for CacheTTL and dropped on admin writes.
type Service struct {
	store  Store
	cache  *cache.Cache
	locale language.Tag
	log    *slog.Logger
}

// CacheTTL is how long course details stay cached.
const CacheTTL = time.Minute

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		cache:  cache.New(CacheTTL, 5*time.Minute),
		locale: language.AmericanEnglish,
		log:    log.With(logger.Component("catalog")),
	}
}

func (s *Service) ListCourses(ctx context.Context, f CourseFilter) ([]Course, error) {
	if f.Tier != "" && !f.Tier.Valid() {
		return nil, ErrInvalidTier
	}
	return s.store.ListCourses(ctx, f)
}

// Course returns a course with its lessons. Unpublished courses and lessons
// are hidden unless includeUnpublished is set.
func (s *Service) Course(ctx context.Context, id uuid.UUID, includeUnpublished bool) (*Course, error) {
	key := courseKey(id, includeUnpublished)
	if v, ok := s.cache.Get(key); ok {
		c := v.(Course)
		return &c, nil
	}

	course, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && !includeUnpublished {
		return nil, ErrCourseNotFound
	}

	lessons, err := s.store.ListLessons(ctx, id, !includeUnpublished)
	if err != nil {
		return nil, err
	}
	course.Lessons = lessons

	s.cache.SetDefault(key, *course)
	return course, nil
}

// CourseSummary returns the course row without lessons and bypasses the cache.
// Access decisions use it so that publishing changes apply immediately.
func (s *Service) CourseSummary(ctx context.Context, id uuid.UUID) (*Course, error) {
	return s.store.GetCourse(ctx, id)
}

func (s *Service) Lesson(ctx context.Context, courseID, lessonID uuid.UUID) (*Lesson, error) {
	return s.store.GetLesson(ctx, courseID, lessonID)
}

func (s *Service) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	c, err := s.store.CreateCourse(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "course created", logger.CourseID(c.ID), logger.Tier(string(c.Tier)))
	return c, nil
}

func (s *Service) UpdateCourse(ctx context.Context, id uuid.UUID, u CourseUpdate) (*Course, error) {
	c, err := s.store.UpdateCourse(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.invalidate(id)
	s.log.InfoContext(ctx, "course updated", logger.CourseID(id))
	return c, nil
}

func (s *Service) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*Course, error) {
	return s.UpdateCourse(ctx, id, CourseUpdate{IsPublished: &published})
}

func (s *Service) AddLesson(ctx context.Context, in LessonInput) (*Lesson, error) {
	l, err := s.store.CreateLesson(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(in.CourseID)
	return l, nil
}

// ListPlans returns the public plans with display labels.
func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	plans, err := s.store.ListPlans(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i].PriceLabel = PriceLabel(plans[i], s.locale)
	}
	return plans, nil
}

func (s *Service) PlanByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return s.store.FindPlan(ctx, squirrel.Eq{"id": id})
}

// PlanByName matches case-insensitively.
func (s *Service) PlanByName(ctx context.Context, name string) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlanNotFound
	}
	return s.store.FindPlan(ctx, squirrel.Expr("LOWER(name) = LOWER(?)", name))
}

// PlanByDuration returns the cheapest public paid plan lasting months.
func (s *Service) PlanByDuration(ctx context.Context, months int) (*Plan, error) {
	if months <= 0 {
		return nil, ErrPlanNotFound
	}
	return s.store.FindPlan(ctx, squirrel.And{
		squirrel.Eq{"duration_months": months, "public": true},
		squirrel.Gt{"price": 0},
	})
}

func (s *Service) PlanByPaddlePrice(ctx context.Context, priceID string) (*Plan, error) {
	if priceID == "" {
		return nil, ErrPlanNotFound
	}
	return s.store.FindPlan(ctx, squirrel.Eq{"paddle_price_id": priceID})
}

// SyncPlans upserts every plan from src.
func (s *Service) SyncPlans(ctx context.Context, src PlanSource) error {
	plans, err := src.Load(ctx)
	if err != nil {
		return err
	}
	for _, p := range plans {
		id, err := s.store.UpsertPlan(ctx, p)
		if err != nil {
			return err
		}
		s.log.DebugContext(ctx, "plan synced", logger.PlanID(id), slog.String("name", p.Name))
	}
	s.log.InfoContext(ctx, "plan catalog synced", slog.Int("plans", len(plans)))
	return nil
}

func (s *Service) invalidate(id uuid.UUID) {
	s.cache.Delete(courseKey(id, true))
	s.cache.Delete(courseKey(id, false))
}

func courseKey(id uuid.UUID, all bool) string {
	return fmt.Sprintf("course:%s:%t", id, all)
}
