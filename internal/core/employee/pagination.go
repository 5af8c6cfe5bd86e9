package employee

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest は 1 始まりのページ番号とページサイズです。ゼロ値は既定値を意味します。
type PageRequest struct {
	Page     int
	PageSize int
}

// PageInfo はページングのメタデータです。
type PageInfo struct {
	Page        int
	PageSize    int
	Total       int64
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// Paginator はページサイズの既定値と上限を保持します。
type Paginator struct {
	defaultSize int
	maxSize     int
}

// NewPaginator は Paginator を生成します。0 以下の値は既定値に置き換えられます。
func NewPaginator(defaultSize, maxSize int) Paginator {
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}
	return Paginator{defaultSize: defaultSize, maxSize: maxSize}
}

// Normalize はページ番号を検証し、ページサイズを既定値・上限に合わせます。
// page は 0 (未指定) のとき 1 になり、負数はエラーです。上限を超えるページサイズは切り詰めます。
func (p Paginator) Normalize(req PageRequest) (PageRequest, error) {
	page := req.Page
	switch {
	case page == 0:
		page = 1
	case page < 1:
		return PageRequest{}, ErrInvalidPage
	}

	size := req.PageSize
	switch {
	case size == 0:
		size = p.defaultSize
	case size < 0:
		return PageRequest{}, ErrInvalidPageSize
	case size > p.maxSize:
		size = p.maxSize
	}

	return PageRequest{Page: page, PageSize: size}, nil
}

// Window は正規化済みリクエストを LIMIT / OFFSET に変換します。
// オフセットが int に収まらない場合は math.MaxInt に飽和させます。
func (r PageRequest) Window() Window {
	offset := math.MaxInt
	if r.PageSize > 0 && r.Page-1 <= math.MaxInt/r.PageSize {
		offset = (r.Page - 1) * r.PageSize
	}
	return Window{Limit: r.PageSize, Offset: offset}
}

// pastEnd は total 件に対してこのページが最終ページより後ろにあるかを返します。
func (r PageRequest) pastEnd(total int64) bool {
	if total <= 0 || r.PageSize <= 0 {
		return true
	}
	return int64(r.Page-1) > (total-1)/int64(r.PageSize)
}

// Info は総件数からメタデータを組み立てます。
func (r PageRequest) Info(total int64) PageInfo {
	totalPages := 0
	if total > 0 && r.PageSize > 0 {
		totalPages = int((total + int64(r.PageSize) - 1) / int64(r.PageSize))
	}
	return PageInfo{
		Page:        r.Page,
		PageSize:    r.PageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     r.Page < totalPages,
		HasPrevious: r.Page > 1,
	}
}
