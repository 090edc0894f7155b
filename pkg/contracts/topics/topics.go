package topics

import "strconv"

const (
	// Kafka
	OddsChanges = "odds_changes"

	// Canal global de Pub/Sub com todos os jogos ao vivo
	LiveChannel = "odds:live:all"

	// Padrão de canais por jogo (usado em PSUBSCRIBE)
	FixtureChannelPattern = "odds:fixture:*"
)

// FixtureChannel retorna o canal Redis Pub/Sub de um jogo específico
func FixtureChannel(fixtureID int64) string {
	return "odds:fixture:" + strconv.FormatInt(fixtureID, 10)
}
