package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedMessage_CatalogFrame(t *testing.T) {
	c := New()
	c.Add(&Category{Key: "Rain", Name: "Rain", Files: []string{"a.mp3"}})
	c.Add(&Category{Key: "Fire", Name: "Fire", Files: []string{"camp.ogg"}})

	data, err := EncodeMessage(Message{Type: MsgCatalog, Catalog: c})
	require.NoError(t, err)

	msg, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MsgCatalog, msg.Type)
	require.NotNil(t, msg.Catalog)
	assert.Equal(t, []string{"Rain", "Fire"}, msg.Catalog.Order)
}

func TestFeedMessage_Hello(t *testing.T) {
	data, err := EncodeMessage(Message{Type: MsgHello, Client: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hello","client":"abc"}`, string(data))
}

func TestDecodeMessage_Rejects(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"catalog"}`))
	assert.Error(t, err)
	_, err = DecodeMessage([]byte(`not json`))
	assert.Error(t, err)
}
