package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Products() ProductStore { return &productStore{db: s.db} }
func (s *PGStore) Works() WorkStore { return &workStore{db: s.db} }

func (s *PGStore) ProductImages() ImageStore {
	return &imageStore{db: s.db, table: "product_images", owner: "product_id"}
}

func (s *PGStore) WorkImages() ImageStore {
	return &imageStore{db: s.db, table: "work_images", owner: "work_id"}
}

// Product store ------------------------------------------------------------
type productStore struct{ db *sql.DB }

const productColumns = `id, provider_product_id, price_id, work_id, name, description, active,
	unit_amount, currency, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var (
		p           Product
		priceID     sql.NullString
		workID      sql.NullInt64
		description sql.NullString
		unitAmount  sql.NullInt64
		metadata    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.ProviderProductID, &priceID, &workID, &p.Name, &description,
		&p.Active, &unitAmount, &p.Currency, &metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if priceID.Valid {
		p.PriceID = &priceID.String
	}
	if workID.Valid {
		p.WorkID = &workID.Int64
	}
	if description.Valid {
		p.Description = &description.String
	}
	if unitAmount.Valid {
		p.UnitAmount = &unitAmount.Int64
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for product %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

func encodeMetadata(m map[string]string) (*string, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	s := string(raw)
	return &s, nil
}

func (s *productStore) Insert(ctx context.Context, p *Product) error {
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx,
		`insert into products(provider_product_id, price_id, work_id, name, description, active, unit_amount, currency, metadata)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 returning id, created_at, updated_at`,
		p.ProviderProductID, p.PriceID, p.WorkID, p.Name, p.Description, p.Active, p.UnitAmount, p.Currency, meta,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRow
	}
	return err
}

func (s *productStore) Get(ctx context.Context, id int64) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `select `+productColumns+` from products where id=$1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *productStore) List(ctx context.Context) ([]*Product, error) {
	rows, err := s.db.QueryContext(ctx, `select `+productColumns+` from products order by id desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *productStore) Update(ctx context.Context, p *Product) error {
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`update products set price_id=$2, work_id=$3, name=$4, description=$5, active=$6,
		 unit_amount=$7, currency=$8, metadata=$9, updated_at=now()
		 where id=$1`,
		p.ID, p.PriceID, p.WorkID, p.Name, p.Description, p.Active, p.UnitAmount, p.Currency, meta,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *productStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from products where id=$1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Image store --------------------------------------------------------------
// table and owner are fixed identifiers chosen by PGStore, never user input.
type imageStore struct {
	db    *sql.DB
	table string
	owner string
}

func scanImage(row rowScanner) (Image, error) {
	var (
		img      Image
		owner    sql.NullInt64
		fileName sql.NullString
	)
	if err := row.Scan(&img.ID, &owner, &fileName, &img.BlobKey); err != nil {
		return Image{}, err
	}
	if owner.Valid {
		img.OwnerID = &owner.Int64
	}
	if fileName.Valid {
		img.FileName = &fileName.String
	}
	return img, nil
}

func (s *imageStore) columns() string {
	return `id, ` + s.owner + `, file_name, blob_key`
}

func (s *imageStore) Insert(ctx context.Context, img *Image) error {
	err := s.db.QueryRowContext(ctx,
		`insert into `+s.table+`(`+s.owner+`, file_name, blob_key) values($1,$2,$3) returning id`,
		img.OwnerID, img.FileName, img.BlobKey,
	).Scan(&img.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRow
	}
	return err
}

func (s *imageStore) Get(ctx context.Context, id int64) (*Image, error) {
	row := s.db.QueryRowContext(ctx, `select `+s.columns()+` from `+s.table+` where id=$1`, id)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

func (s *imageStore) ListByOwner(ctx context.Context, ownerID int64) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+s.columns()+` from `+s.table+` where `+s.owner+`=$1 order by id asc`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, img)
	}
	return res, rows.Err()
}

func (s *imageStore) ListAttached(ctx context.Context) (map[int64][]Image, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+s.columns()+` from `+s.table+` where `+s.owner+` is not null order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64][]Image)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		res[*img.OwnerID] = append(res[*img.OwnerID], img)
	}
	return res, rows.Err()
}

func (s *imageStore) Attach(ctx context.Context, ownerID int64, imageIDs []int64) (int, error) {
	attached := 0
	for _, id := range imageIDs {
		res, err := s.db.ExecContext(ctx,
			`update `+s.table+` set `+s.owner+`=$1 where id=$2 and `+s.owner+` is null`,
			ownerID, id,
		)
		if err != nil {
			return attached, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return attached, err
		}
		attached += int(n)
	}
	return attached, nil
}

func (s *imageStore) DetachAll(ctx context.Context, ownerID int64) error {
	_, err := s.db.ExecContext(ctx,
		`update `+s.table+` set `+s.owner+`=null where `+s.owner+`=$1`, ownerID)
	return err
}

func (s *imageStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from `+s.table+` where id=$1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Work store ---------------------------------------------------------------
type workStore struct{ db *sql.DB }

func (s *workStore) Insert(ctx context.Context, w *Work) error {
	err := s.db.QueryRowContext(ctx,
		`insert into works(title, title_english, description, category_id, series_id, year, material, dimensions)
		 values($1,$2,$3,$4,$5,$6,$7,$8) returning id`,
		w.Title, w.TitleEnglish, w.Description, w.CategoryID, w.SeriesID, w.Year, w.Material, w.Dimensions,
	).Scan(&w.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRow
	}
	return err
}

func (s *workStore) List(ctx context.Context) ([]*Work, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, title_english, description, category_id, series_id, year, material, dimensions
		 from works order by id desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Work
	for rows.Next() {
		var (
			w            Work
			titleEnglish sql.NullString
			description  sql.NullString
			categoryID   sql.NullInt64
			seriesID     sql.NullInt64
			year         sql.NullInt32
			material     sql.NullString
			dimensions   sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.Title, &titleEnglish, &description, &categoryID, &seriesID,
			&year, &material, &dimensions); err != nil {
			return nil, err
		}
		w.TitleEnglish = nullableString(titleEnglish)
		w.Description = nullableString(description)
		w.Material = nullableString(material)
		w.Dimensions = nullableString(dimensions)
		if categoryID.Valid {
			w.CategoryID = &categoryID.Int64
		}
		if seriesID.Valid {
			w.SeriesID = &seriesID.Int64
		}
		if year.Valid {
			y := int(year.Int32)
			w.Year = &y
		}
		res = append(res, &w)
	}
	return res, rows.Err()
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
