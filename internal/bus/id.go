package bus

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// idAlphabet — алфавит генератора идентификаторов. Символы `$` и `@`
// зарезервированы как разделители при разборе топиков, поэтому
// содержащие их идентификаторы отбрасываются и тянутся заново.
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789$@"

// idLength — длина генерируемых идентификаторов.
const idLength = 16

// NewTopicID возвращает случайный идентификатор, безопасный для
// встраивания в топик как сегмент пути: он гарантированно не содержит
// зарезервированных символов `$` и `@`.
func NewTopicID() string {
	for {
		id := drawID()
		if !strings.ContainsAny(id, "$@") {
			return id
		}
	}
}

// drawID тянет одну случайную строку из полного алфавита.
func drawID() string {
	var b strings.Builder
	b.Grow(idLength)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := 0; i < idLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand не возвращает ошибок на поддерживаемых платформах
			panic(err)
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String()
}
