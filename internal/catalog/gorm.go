package catalog

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stringList stores a string slice as JSON text.
type stringList []string

func (s stringList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(payload), nil
}

func (s *stringList) Scan(value any) error {
	if s == nil {
		return errors.New("string list scan: nil receiver")
	}
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("string list scan: unsupported type %T", value)
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("unmarshal string list: %w", err)
	}
	*s = decoded
	return nil
}

type serverRow struct {
	ID            uint          `gorm:"primaryKey"`
	Slug          string        `gorm:"uniqueIndex;type:varchar(128);not null"`
	Name          string        `gorm:"type:varchar(256);not null"`
	Description   string        `gorm:"type:text"`
	Readme        string        `gorm:"type:text"`
	RepositoryURL string        `gorm:"column:repository_url;type:text"`
	Author        string        `gorm:"type:varchar(128)"`
	Stars         int           `gorm:"default:0"`
	VoteScore     int           `gorm:"column:vote_score;default:0"`
	Tags          stringList    `gorm:"type:text"`
	Categories    []categoryRow `gorm:"many2many:server_categories;joinForeignKey:server_id;joinReferences:category_id"`
	UpdatedAt     time.Time
}

func (serverRow) TableName() string { return "mcp_servers" }

func (r serverRow) toServer() Server {
	s := Server{
		Slug:          r.Slug,
		Name:          r.Name,
		Description:   r.Description,
		Readme:        r.Readme,
		RepositoryURL: r.RepositoryURL,
		Author:        r.Author,
		Stars:         r.Stars,
		VoteScore:     r.VoteScore,
		Tags:          []string(r.Tags),
		UpdatedAt:     r.UpdatedAt,
	}
	for _, c := range r.Categories {
		s.Categories = append(s.Categories, c.Slug)
	}
	return s
}

type categoryRow struct {
	ID          uint   `gorm:"primaryKey"`
	Slug        string `gorm:"uniqueIndex;type:varchar(128);not null"`
	Name        string `gorm:"type:varchar(256)"`
	Description string `gorm:"type:text"`
}

func (categoryRow) TableName() string { return "categories" }

type categoryCountRow struct {
	Slug        string
	Name        string
	Description string
	ServerCount int
}

var serverSortColumns = map[SortOrder]string{
	SortPopular: "mcp_servers.vote_score DESC, mcp_servers.stars DESC, mcp_servers.slug ASC",
	SortRecent:  "mcp_servers.updated_at DESC, mcp_servers.slug ASC",
	SortName:    "mcp_servers.name ASC, mcp_servers.slug ASC",
}

// OpenPostgres opens the Supabase Postgres database behind dsn.
func OpenPostgres(dsn string, maxOpenConns int) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("catalog: database url is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("catalog: postgres pool: %w", err)
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// GormRepository reads the catalog through gorm.
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository wraps db.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates the catalog tables. Production schemas are managed outside this service;
// this is used for local databases and tests.
func (r *GormRepository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&categoryRow{}, &serverRow{}); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Seed inserts categories and servers, linking servers to categories by slug.
func (r *GormRepository) Seed(ctx context.Context, categories []Category, servers []Server) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bySlug := make(map[string]categoryRow, len(categories))
		for _, c := range categories {
			row := categoryRow{Slug: c.Slug, Name: c.Name, Description: c.Description}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("catalog: seed category %s: %w", c.Slug, err)
			}
			bySlug[c.Slug] = row
		}
		for _, s := range servers {
			row := serverRow{
				Slug:          s.Slug,
				Name:          s.Name,
				Description:   s.Description,
				Readme:        s.Readme,
				RepositoryURL: s.RepositoryURL,
				Author:        s.Author,
				Stars:         s.Stars,
				VoteScore:     s.VoteScore,
				Tags:          stringList(s.Tags),
				UpdatedAt:     s.UpdatedAt,
			}
			for _, slug := range s.Categories {
				if c, ok := bySlug[slug]; ok {
					row.Categories = append(row.Categories, c)
				}
			}
			if err := tx.Omit("Categories.*").Create(&row).Error; err != nil {
				return fmt.Errorf("catalog: seed server %s: %w", s.Slug, err)
			}
		}
		return nil
	})
}

func (r *GormRepository) ListServers(ctx context.Context, opts ListOptions) (ServerList, error) {
	return r.listServers(ctx, r.db.WithContext(ctx).Model(&serverRow{}), opts)
}

func (r *GormRepository) GetServer(ctx context.Context, slug string) (Server, error) {
	var row serverRow
	err := r.db.WithContext(ctx).Preload("Categories").First(&row, "slug = ?", strings.TrimSpace(slug)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Server{}, ErrNotFound
		}
		return Server{}, fmt.Errorf("catalog: get server %q: %w", slug, err)
	}
	return row.toServer(), nil
}

func (r *GormRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var rows []categoryCountRow
	if err := r.categoryCounts(ctx).Order("categories.slug ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, Category(row))
	}
	return out, nil
}

func (r *GormRepository) GetCategory(ctx context.Context, slug string) (Category, error) {
	var rows []categoryCountRow
	err := r.categoryCounts(ctx).Where("categories.slug = ?", strings.TrimSpace(slug)).Scan(&rows).Error
	if err != nil {
		return Category{}, fmt.Errorf("catalog: get category %q: %w", slug, err)
	}
	if len(rows) == 0 {
		return Category{}, ErrNotFound
	}
	return Category(rows[0]), nil
}

func (r *GormRepository) ServersByCategory(ctx context.Context, slug string, opts ListOptions) (ServerList, error) {
	if _, err := r.GetCategory(ctx, slug); err != nil {
		return ServerList{}, err
	}
	members := r.db.Table("server_categories").
		Select("server_categories.server_id").
		Joins("JOIN categories ON categories.id = server_categories.category_id").
		Where("categories.slug = ?", strings.TrimSpace(slug))
	base := r.db.WithContext(ctx).Model(&serverRow{}).Where("mcp_servers.id IN (?)", members)
	return r.listServers(ctx, base, opts)
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("catalog: database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *GormRepository) listServers(ctx context.Context, base *gorm.DB, opts ListOptions) (ServerList, error) {
	opts = opts.normalized()
	if opts.Query != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(opts.Query)) + "%"
		base = base.Where(`LOWER(mcp_servers.name) LIKE ? ESCAPE '\' OR LOWER(mcp_servers.description) LIKE ? ESCAPE '\'`, like, like)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return ServerList{}, fmt.Errorf("catalog: count servers: %w", err)
	}

	query := base.Order(serverSortColumns[opts.Sort]).Preload("Categories")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	var rows []serverRow
	if err := query.Find(&rows).Error; err != nil {
		return ServerList{}, fmt.Errorf("catalog: list servers: %w", err)
	}

	out := ServerList{Servers: make([]Server, 0, len(rows)), Total: int(total)}
	for _, row := range rows {
		out.Servers = append(out.Servers, row.toServer())
	}
	return out, nil
}

func (r *GormRepository) categoryCounts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("categories").
		Select("categories.slug, categories.name, categories.description, COUNT(server_categories.server_id) AS server_count").
		Joins("LEFT JOIN server_categories ON server_categories.category_id = categories.id").
		Group("categories.id, categories.slug, categories.name, categories.description")
}
