package snow

import "fmt"

// etatLabels maps the InfoNeige state codes to the human-readable labels the
// city publishes. The table is fixed; codes 6-9 have never been observed.
var etatLabels = map[int]string{
	0:  "Enneigé",
	1:  "Déneigé",
	2:  "Planifié",
	3:  "Replanifié",
	4:  "Sera replanifié ultérieurement",
	5:  "Chargement en cours",
	10: "Dégagé (entre 2 chargements de neige)",
}

// StatusLabel derives the display status for a state code. Unknown codes get
// a fallback label embedding the raw code; this never fails.
func StatusLabel(etat int) string {
	if label, ok := etatLabels[etat]; ok {
		return label
	}
	return fmt.Sprintf("État inconnu (%d)", etat)
}
