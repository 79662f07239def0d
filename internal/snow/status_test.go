package snow

import "testing"

func TestStatusLabel(t *testing.T) {
	cases := []struct {
		etat int
		want string
	}{
		{0, "Enneigé"},
		{1, "Déneigé"},
		{2, "Planifié"},
		{3, "Replanifié"},
		{4, "Sera replanifié ultérieurement"},
		{5, "Chargement en cours"},
		{10, "Dégagé (entre 2 chargements de neige)"},
		{99, "État inconnu (99)"},
		{-1, "État inconnu (-1)"},
		{7, "État inconnu (7)"},
	}

	for _, tc := range cases {
		if got := StatusLabel(tc.etat); got != tc.want {
			t.Errorf("StatusLabel(%d) = %q, want %q", tc.etat, got, tc.want)
		}
	}
}
