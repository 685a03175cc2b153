package tagseek

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tagseek/enzyme"
	"github.com/hupe1980/tagseek/resource"
	"github.com/hupe1980/tagseek/seqio"
	"github.com/hupe1980/tagseek/sketch"
)

func TestTranslateError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})

	t.Run("incompatible sketch", func(t *testing.T) {
		err := translateError(&sketch.ErrIncompatible{Field: "enzyme", Want: "BcgI", Got: "CspCI"})

		require.True(t, IsIncompatibleSketchError(err))
		var se *IncompatibleSketchError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "enzyme", se.Field)
		assert.Equal(t, "BcgI", se.Want)
		assert.Equal(t, "CspCI", se.Got)
	})

	t.Run("unknown enzyme", func(t *testing.T) {
		err := translateError(&enzyme.ErrUnknownEnzyme{Name: "EcoRI"})

		require.True(t, IsConfigurationError(err))
		var ce *ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "enzyme", ce.Param)
		assert.Equal(t, "EcoRI", ce.Value)
	})

	t.Run("malformed record", func(t *testing.T) {
		err := translateError(&seqio.ErrMalformedRecord{Path: "in.fq", Line: 8, Reason: "short quality"})

		require.True(t, IsInputError(err))
		var ie *InputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "in.fq", ie.Unit)
	})

	t.Run("pair mismatch", func(t *testing.T) {
		err := translateError(&seqio.ErrPairMismatch{First: "r1.fq", Second: "r2.fq"})

		require.True(t, IsInputError(err))
		var ie *InputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "r1.fq", ie.Unit)
	})

	t.Run("memory limit", func(t *testing.T) {
		err := translateError(fmt.Errorf("unit big.fa: %w", resource.ErrMemoryLimit))

		require.True(t, IsResourceError(err))
		assert.ErrorIs(t, err, resource.ErrMemoryLimit)
	})

	t.Run("passthrough", func(t *testing.T) {
		plain := errors.New("boom")
		assert.Equal(t, plain, translateError(plain))
	})

	t.Run("no double wrap", func(t *testing.T) {
		inner := &InputError{Unit: "in.fq", cause: &seqio.ErrMalformedRecord{Path: "in.fq", Line: 2, Reason: "bad header"}}

		err := translateError(inner)

		assert.Equal(t, inner, err)
	})
}

func TestUnitErrorsError(t *testing.T) {
	tests := []struct {
		name string
		ue   UnitErrors
		want string
	}{
		{
			name: "empty",
			ue:   nil,
			want: "no unit errors",
		},
		{
			name: "single",
			ue:   UnitErrors{{Unit: "a.fa", Err: errors.New("boom")}},
			want: "unit a.fa: boom",
		},
		{
			name: "several",
			ue: UnitErrors{
				{Unit: "a.fa", Err: errors.New("boom")},
				{Unit: "b.fa", Err: errors.New("crash")},
			},
			want: "2 units failed: a.fa, b.fa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ue.Error())
		})
	}
}

func TestUnitErrorsUnwrap(t *testing.T) {
	ue := UnitErrors{
		{Unit: "a.fa", Err: errors.New("boom")},
		{Unit: "b.fq", Err: &InputError{Unit: "b.fq", cause: errors.New("no such file")}},
	}

	assert.True(t, IsInputError(ue))

	var unit *UnitError
	require.ErrorAs(t, ue, &unit)
	assert.Equal(t, "a.fa", unit.Unit)
}

func TestIsHelpers(t *testing.T) {
	plain := errors.New("boom")

	assert.False(t, IsConfigurationError(nil))
	assert.False(t, IsConfigurationError(plain))
	assert.False(t, IsInputError(plain))
	assert.False(t, IsIncompatibleSketchError(plain))
	assert.False(t, IsResourceError(plain))

	wrapped := fmt.Errorf("context: %w", &ConfigurationError{Param: "threads", Value: "-1", Reason: "must be positive"})
	assert.True(t, IsConfigurationError(wrapped))
}
