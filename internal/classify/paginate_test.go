package classify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"casefile/internal/models"
)

func makePersons(n int) []ClassifiedPerson {
	out := make([]ClassifiedPerson, n)
	for i := range out {
		out[i] = ClassifiedPerson{Person: newPerson(fmt.Sprintf("P%d", i), "Test")}
	}
	return out
}

func TestPaginate(t *testing.T) {
	t.Run("splits at page size", func(t *testing.T) {
		persons := makePersons(25)

		p := Paginate(persons, 1)
		assert.Len(t, p.Persons, 10)
		assert.Equal(t, 3, p.TotalPages)
		assert.False(t, p.HasPrev)
		assert.True(t, p.HasNext)

		p = Paginate(persons, 3)
		assert.Len(t, p.Persons, 5)
		assert.True(t, p.HasPrev)
		assert.False(t, p.HasNext)
		assert.Equal(t, "P20", p.Persons[0].Person.FirstName)
	})

	t.Run("clamps out of range pages", func(t *testing.T) {
		persons := makePersons(15)

		p := Paginate(persons, 0)
		assert.Equal(t, 1, p.Number)

		p = Paginate(persons, 99)
		assert.Equal(t, 2, p.Number)
		assert.Len(t, p.Persons, 5)
	})

	t.Run("empty input yields one empty page", func(t *testing.T) {
		p := Paginate(nil, 1)
		assert.Empty(t, p.Persons)
		assert.Equal(t, 1, p.Number)
		assert.Equal(t, 1, p.TotalPages)
		assert.False(t, p.HasPrev)
		assert.False(t, p.HasNext)
	})
}

func TestPageParams(t *testing.T) {
	assert.Equal(t, "page_federal_felons", PageParam(Category{models.JurisdictionFederal, models.Felony}))
	assert.Equal(t, "page_state_misdemeanors", PageParam(Category{models.JurisdictionState, models.Misdemeanor}))

	assert.Equal(t, "page_class_a", ClassPageParam(ClassGroup{Class: "A"}))
	assert.Equal(t, "page_class_na", ClassPageParam(ClassGroup{Class: "NA"}))
	assert.Equal(t, "page_unknown", ClassPageParam(ClassGroup{Class: ""}))
}
