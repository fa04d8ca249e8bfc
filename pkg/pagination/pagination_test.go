package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNew_Clamps(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Offset: 0}, New(0, 0))
	assert.Equal(t, Params{Page: 3, Limit: MaxLimit, Offset: 200}, New(3, 500))
	assert.Equal(t, Params{Page: 2, Limit: 5, Offset: 5}, New(2, 5))
}

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/records?page=2&limit=abc", nil)

	assert.Equal(t, Params{Page: 2, Limit: DefaultLimit, Offset: DefaultLimit}, Parse(c))
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{3, 4}, Slice(items, New(2, 2)).Items)
	assert.Equal(t, []int{5}, Slice(items, New(3, 2)).Items)

	past := Slice(items, New(9, 2))
	assert.Empty(t, past.Items)
	assert.NotNil(t, past.Items)
	assert.Equal(t, 5, past.Total)
}
