package classify

// PageSize is the fixed number of persons shown per page in every
// categorized view.
const PageSize = 10

// Page is one page of classified persons plus the navigation state the
// handlers render.
type Page struct {
	Persons    []ClassifiedPerson `json:"persons"`
	Number     int                `json:"number"`
	TotalPages int                `json:"total_pages"`
	HasPrev    bool               `json:"has_prev"`
	HasNext    bool               `json:"has_next"`
}

// Paginate slices persons into the requested 1-based page. Out-of-range
// requests clamp: below 1 returns the first page, past the end returns the
// last. An empty slice yields a single empty page.
func Paginate(persons []ClassifiedPerson, page int) Page {
	total := len(persons)
	totalPages := (total + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{
		Persons:    persons[start:end],
		Number:     page,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

// PageParam is the query parameter carrying the page number for a category
// view, e.g. "page_federal_felons". Each bucket paginates independently.
func PageParam(cat Category) string {
	return "page_" + cat.Key()
}

// ClassPageParam is the query parameter for one class group within a class
// view, e.g. "page_class_a" or "page_unknown".
func ClassPageParam(g ClassGroup) string {
	if g.Class == "" {
		return "page_unknown"
	}
	return "page_" + classSlug(g.Class)
}

func classSlug(code string) string {
	b := make([]byte, 0, len(code)+6)
	b = append(b, "class_"...)
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}
