package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatAct/internal/errs"
)

func TestCode_KeyAndCommandAreDisjoint(t *testing.T) {
	assert.Zero(t, CommandMask&KeyMask)

	c := Read | Step | Key5
	assert.Equal(t, 5, c.KeyIndex())
	assert.Equal(t, Read|Step, c.Command())
	assert.True(t, c.Has(Read))
	assert.False(t, c.Has(Write|Delete))
	assert.Equal(t, Read|Step|Key2, c.WithKey(2))
}

func TestCode_String(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{Read | Step | Key2, "READ|STEP|KEY2"},
		{Open, "OPEN"},
		{Key0, "KEY0"},
		{Update | Key1, "UPDATE|KEY1"},
		{Code(0x4000), "0x4000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.String())
		})
	}
}

func TestParse(t *testing.T) {
	c, err := Parse("read | step|key3")
	require.NoError(t, err)
	assert.Equal(t, Read|Step|Key3, c)

	c, err = Parse("DELETE")
	require.NoError(t, err)
	assert.Equal(t, Delete, c)

	_, err = Parse("read|frobnicate")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Parse("read|key9")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}
