package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uniexam/exam-scheduler-api/internal/models"
)

// ClassroomRepository manages persistence for exam rooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms matching the provided filters.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := "FROM classrooms r"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.name) LIKE $%d OR LOWER(r.code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.MinCapacity != nil {
		conditions = append(conditions, fmt.Sprintf("r.capacity >= $%d", len(args)+1))
		args = append(args, *filter.MinCapacity)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"code":     "r.code",
		"capacity": "r.capacity",
	}
	if sortBy == "" {
		sortBy = "code"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "r.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.code, r.name, r.capacity, r.rows, r.columns, r.seat_group, r.created_at, r.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}
	return rooms, total, nil
}

// FindByID fetches a classroom by ID.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, code, name, capacity, rows, columns, seat_group, created_at, updated_at FROM classrooms WHERE id = $1`
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListByIDs fetches the given classrooms sorted by capacity descending.
// An empty ID set returns every classroom.
func (r *ClassroomRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error) {
	query := `SELECT id, code, name, capacity, rows, columns, seat_group, created_at, updated_at FROM classrooms`
	args := []interface{}{}
	if len(ids) > 0 {
		in, inArgs, err := sqlx.In(" WHERE id IN (?)", ids)
		if err != nil {
			return nil, fmt.Errorf("build classroom id filter: %w", err)
		}
		query += r.db.Rebind(in)
		args = inArgs
	}
	query += " ORDER BY capacity DESC, code ASC"

	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("list classrooms by ids: %w", err)
	}
	return rooms, nil
}

// ExistsByCode checks if a classroom with the code exists optionally excluding an ID.
func (r *ClassroomRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classrooms WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check classroom code: %w", err)
	}
	return true, nil
}

// Create inserts a new classroom record.
func (r *ClassroomRepository) Create(ctx context.Context, room *models.Classroom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	const query = `INSERT INTO classrooms (id, code, name, capacity, rows, columns, seat_group, created_at, updated_at)
        VALUES (:id, :code, :name, :capacity, :rows, :columns, :seat_group, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Update modifies an existing classroom.
func (r *ClassroomRepository) Update(ctx context.Context, room *models.Classroom) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET code = :code, name = :name, capacity = :capacity, rows = :rows, columns = :columns, seat_group = :seat_group, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// Delete removes a classroom.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM classrooms WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	return nil
}
