package pipeline

import (
	"regexp"
	"strings"
)

// Role-mapping heuristic weights.
const (
	cueWordWeight  = 0.3
	positionWeight = 0.2
	lengthWeight   = 0.1

	// When set, the first distinct speaker by turn order is assumed to be
	// the patient and scores only break ties among the rest.
	firstDistinctSpeakerIsPatient = true
)

var patientCues = []string{
	"je", "moi", "mon", "ma", "mes", "me", "m'", "j'ai", "j'étais", "j'ai eu",
	"i", "my", "me", "i'm", "i was", "i had", "i feel", "i think", "i need",
	"douleur", "mal", "souffre", "sensation", "symptôme", "problème",
	"pain", "hurt", "ache", "symptom", "problem", "issue", "feel",
}

var clinicianCues = []string{
	"docteur", "dr", "médecin", "infirmier", "infirmière", "thérapeute",
	"doctor", "dr", "physician", "nurse", "therapist", "specialist",
	"diagnostic", "traitement", "médicament", "prescription", "examen",
	"diagnosis", "treatment", "medication", "prescription", "exam", "test",
	"comment", "depuis", "combien", "où", "quand", "pourquoi",
	"how", "since", "how long", "where", "when", "why", "what",
}

var (
	patientCueRes   = compileCues(patientCues)
	clinicianCueRes = compileCues(clinicianCues)
)

func compileCues(cues []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(cues))
	for _, cue := range cues {
		res = append(res, regexp.MustCompile(`\b`+regexp.QuoteMeta(cue)+`\b`))
	}
	return res
}

// MapRoles assigns PATIENT/CLINICIAN roles to the dialog's speakers. A lone
// speaker is always the patient. With multiple speakers the first distinct
// speaker by turn order is the patient unless the heuristic is disabled, in
// which case the highest-scoring speaker wins.
func MapRoles(dialog Dialog) RoleMap {
	speakers := distinctSpeakers(dialog)
	roleMap := make(RoleMap)

	if len(speakers) == 0 {
		return roleMap
	}
	if len(speakers) == 1 {
		roleMap[speakers[0]] = RolePatient
		return roleMap
	}

	if firstDistinctSpeakerIsPatient {
		first := dialog.Turns[0].Speaker
		roleMap[first] = RolePatient
		for _, speaker := range speakers {
			if speaker != first {
				roleMap[speaker] = RoleClinician
			}
		}
		return roleMap
	}

	scores := speakerScores(dialog, speakers)
	best := speakers[0]
	for _, speaker := range speakers[1:] {
		if scores[speaker] > scores[best] {
			best = speaker
		}
	}
	roleMap[best] = RolePatient
	for _, speaker := range speakers {
		if speaker != best {
			roleMap[speaker] = RoleClinician
		}
	}
	return roleMap
}

// SwapRoles inverts every assignment, for support staff dictating on the
// clinician channel.
func SwapRoles(roleMap RoleMap) RoleMap {
	swapped := make(RoleMap, len(roleMap))
	for speaker, role := range roleMap {
		if role == RolePatient {
			swapped[speaker] = RoleClinician
		} else {
			swapped[speaker] = RolePatient
		}
	}
	return swapped
}

func distinctSpeakers(dialog Dialog) []string {
	seen := make(map[string]struct{})
	var speakers []string
	for _, turn := range dialog.Turns {
		if _, ok := seen[turn.Speaker]; ok {
			continue
		}
		seen[turn.Speaker] = struct{}{}
		speakers = append(speakers, turn.Speaker)
	}
	return speakers
}

func speakerScores(dialog Dialog, speakers []string) map[string]float64 {
	scores := make(map[string]float64, len(speakers))
	for _, speaker := range speakers {
		var turns []Turn
		for _, turn := range dialog.Turns {
			if turn.Speaker == speaker {
				turns = append(turns, turn)
			}
		}
		scores[speaker] = cueWordScore(turns)*cueWordWeight +
			positionScore(speaker, dialog)*positionWeight +
			lengthScore(turns)*lengthWeight
	}
	return scores
}

// cueWordScore counts patient cues as positive and clinician cues as
// negative matches over the speaker's combined text.
func cueWordScore(turns []Turn) float64 {
	var parts []string
	for _, turn := range turns {
		parts = append(parts, strings.ToLower(turn.Text))
	}
	text := strings.Join(parts, " ")

	var score float64
	for _, re := range patientCueRes {
		score += float64(len(re.FindAllString(text, -1)))
	}
	for _, re := range clinicianCueRes {
		score -= float64(len(re.FindAllString(text, -1)))
	}
	return score
}

func positionScore(speaker string, dialog Dialog) float64 {
	firstIdx := -1
	for i, turn := range dialog.Turns {
		if turn.Speaker == speaker {
			firstIdx = i
			break
		}
	}
	if firstIdx == -1 {
		return 0
	}
	total := len(dialog.Turns)
	return float64(total-firstIdx) / float64(total)
}

// lengthScore is words per second over all the speaker's turns.
func lengthScore(turns []Turn) float64 {
	if len(turns) == 0 {
		return 0
	}
	var words int
	var duration float64
	for _, turn := range turns {
		words += len(strings.Fields(turn.Text))
		duration += turn.EndTime - turn.StartTime
	}
	if duration <= 0 {
		return 0
	}
	return float64(words) / duration
}
