// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tasker/pkg/pagination"
)

func TestFromRequest(t *testing.T) {
	cases := map[string]pagination.Params{
		"/":                   {Page: 1, Limit: 20},
		"/?page=3&limit=50":   {Page: 3, Limit: 50},
		"/?page=0&limit=1000": {Page: 1, Limit: 20},
		"/?page=x&limit=-1":   {Page: 1, Limit: 20},
	}
	for target, want := range cases {
		assert.Equal(t, want, pagination.FromRequest(httptest.NewRequest("GET", target, nil)), target)
	}
}

func TestParamsAndMeta(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, pagination.Params{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, pagination.Meta{Page: 2, Limit: 20, Total: 41, TotalPages: 3}, pagination.NewMeta(2, 20, 41))
	assert.Equal(t, 0, pagination.NewMeta(1, 0, 5).TotalPages)
}
