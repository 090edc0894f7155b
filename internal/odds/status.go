package odds

// Short codes de status do provedor, agrupados pelo efeito que têm sobre
// apostas. Jogos fora desses conjuntos (NS, TBD...) continuam apostáveis.

var liveCodes = map[string]bool{
	"1H": true, "HT": true, "2H": true,
	"ET": true, "BT": true, "P": true, "LIVE": true,
}

var finishedCodes = map[string]bool{
	"FT": true, "AET": true, "PEN": true, "WO": true, "AWD": true,
}

var cancelledCodes = map[string]bool{
	"CANC": true, "SUSP": true, "INT": true, "ABD": true,
}

const postponedCode = "PST"

func IsLiveStatus(short string) bool      { return liveCodes[short] }
func IsFinishedStatus(short string) bool  { return finishedCodes[short] }
func IsCancelledStatus(short string) bool { return cancelledCodes[short] }
func IsPostponedStatus(short string) bool { return short == postponedCode }

// IsBettableStatus cobre o gate de status da validação: qualquer código
// finalizado, cancelado ou adiado torna o jogo não apostável
func IsBettableStatus(short string) bool {
	return !IsFinishedStatus(short) && !IsCancelledStatus(short) && !IsPostponedStatus(short)
}
