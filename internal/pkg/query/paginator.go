package query

import (
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"
)

// Paginate counts the filtered rows, loads one page and converts each row to its domain form.
func Paginate[DBModel any, Domain any](
	q *Query[DBModel],
	pagination *pkg.PaginationParams,
	converter func(*DBModel) (*Domain, error),
) ([]*Domain, int64, error) {
	pagination = pkg.NormalizePagination(pagination)

	total, err := q.Count()
	if err != nil {
		return nil, 0, err
	}

	db := q.DB()
	if q.orderBy != "" {
		db = db.Order(q.orderBy)
	}

	var rows []DBModel
	err = db.Offset(pagination.Offset()).Limit(pagination.Limit).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	items, err := ConvertAll(rows, converter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func All[DBModel any, Domain any](
	q *Query[DBModel],
	converter func(*DBModel) (*Domain, error),
) ([]*Domain, error) {
	rows, err := q.Find()
	if err != nil {
		return nil, err
	}
	return ConvertAll(rows, converter)
}

func ConvertAll[DBModel any, Domain any](rows []DBModel, converter func(*DBModel) (*Domain, error)) ([]*Domain, error) {
	items := make([]*Domain, 0, len(rows))
	for i := range rows {
		item, err := converter(&rows[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
