package agentgateerrors

import (
	"net/http"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHttpStatusFromError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"ErrAlreadyExists":                {&ErrAlreadyExists{}, http.StatusConflict},
		"ErrNotFound":                     {&ErrNotFound{}, http.StatusNotFound},
		"ErrInvalidArgument":              {&ErrInvalidArgument{}, http.StatusBadRequest},
		"pkg.Error => ErrAlreadyExists":   {errors.WithMessage(&ErrAlreadyExists{}, "foo"), http.StatusConflict},
		"pkg.Error => ErrNotFound":        {errors.WithMessage(&ErrNotFound{}, "foo"), http.StatusNotFound},
		"pkg.Error => ErrInvalidArgument": {errors.WithMessage(&ErrInvalidArgument{}, "foo"), http.StatusBadRequest},
		"multierror => ErrInvalidArgument": {
			multierror.Append(nil, &ErrInvalidArgument{Name: "id"}, &ErrInvalidArgument{Name: "tier"}),
			http.StatusBadRequest,
		},
		"pkg.Error": {errors.New("foo"), http.StatusInternalServerError},
		"nil":       {nil, http.StatusOK},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, HttpStatusFromError(tc.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `resource "job-1" of type "job" already exists`, (&ErrAlreadyExists{Type: "job", Value: "job-1"}).Error())
	assert.Equal(t, `resource "job-1" already exists; try again`, (&ErrAlreadyExists{Value: "job-1", Message: "try again"}).Error())
	assert.Equal(t, `resource "acme" of type "tenant" does not exist`, (&ErrNotFound{Type: "tenant", Value: "acme"}).Error())
	assert.Equal(t, `value "" is invalid for field "tenantId"; must not be empty`, (&ErrInvalidArgument{Name: "tenantId", Value: "", Message: "must not be empty"}).Error())
}
