package lead

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate_FullCommercialMessage(t *testing.T) {
	got := Update("quiero cotizar matafuegos, soy Juan, juan@x.com", Record{})

	assert.Equal(t, "quiero cotizar matafuegos, soy Juan, juan@x.com", got.Intent)
	assert.Equal(t, "Juan", got.Name)
	assert.Equal(t, "juan@x.com", got.Email)
	assert.Empty(t, got.Location)
	assert.True(t, Ready(got))
}

func TestUpdate_GreetingCapturesNothing(t *testing.T) {
	got := Update("Hola", Record{})
	assert.True(t, got.IsEmpty())
	assert.False(t, Ready(got))
}

func TestUpdate_Idempotent(t *testing.T) {
	msgs := []string{
		"necesito extintores para mi oficina de 120 m2",
		"me llamo maría, escribime a maria@empresa.com.ar",
		"sí",
	}
	var rec Record
	for _, m := range msgs {
		rec = Update(m, rec)
	}
	again := rec
	for _, m := range msgs {
		again = Update(m, again)
	}
	assert.Equal(t, rec, again)
	assert.Equal(t, "María", rec.Name)
	assert.Equal(t, "maria@empresa.com.ar", rec.Email)
	assert.True(t, rec.Confirmed)
}

func TestUpdate_SetFieldsAreNotOverwritten(t *testing.T) {
	rec := Record{Intent: "primera consulta", Name: "Ana", Email: "ana@x.com"}
	got := Update("quiero comprar, soy Pedro, pedro@y.com", rec)
	assert.Equal(t, rec.Intent, got.Intent)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "ana@x.com", got.Email)
}

func TestUpdate_IntentTruncatedToRunes(t *testing.T) {
	long := "quiero " + strings.Repeat("ñ", 300)
	got := Update(long, Record{})
	assert.Equal(t, maxIntentRunes, len([]rune(got.Intent)))
}

func TestUpdate_LocationAppends(t *testing.T) {
	got := Update("tengo una oficina en Palermo", Record{})
	assert.Equal(t, "tengo una oficina en Palermo", got.Location)

	got = Update("y un depósito en Avellaneda", got)
	assert.Equal(t, "tengo una oficina en Palermo | y un depósito en Avellaneda", got.Location)

	got = Update("y un depósito en Avellaneda", got)
	assert.Equal(t, "tengo una oficina en Palermo | y un depósito en Avellaneda", got.Location)
}

func TestUpdate_NameStoplist(t *testing.T) {
	cases := []string{
		"soy de Córdoba",
		"soy una empresa",
		"soy el encargado",
		"me llamo x",
		"mi nombre es eva",
	}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			assert.Empty(t, Update(c, Record{}).Name)
		})
	}
}

func TestUpdate_NamePatternsInOrder(t *testing.T) {
	assert.Equal(t, "Lucas", Update("hola me llamo lucas", Record{}).Name)
	assert.Equal(t, "Sofía", Update("mi nombre es Sofía", Record{}).Name)
}

func TestUpdate_Confirmation(t *testing.T) {
	for _, c := range []string{"correcto", "Sí, es el mismo número", "está bien", "confirmo", "Dale!"} {
		assert.True(t, Update(c, Record{}).Confirmed, c)
	}
	assert.False(t, Update("sigo pensando", Record{}).Confirmed)
}

func TestReady(t *testing.T) {
	assert.False(t, Ready(Record{Name: "Juan"}))
	assert.False(t, Ready(Record{Intent: "cotizar"}))
	assert.True(t, Ready(Record{Intent: "cotizar", Email: "a@b.co"}))
	assert.True(t, Ready(Record{Intent: "cotizar", Name: "Juan"}))
}
