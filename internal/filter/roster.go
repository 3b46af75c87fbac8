package filter

// DefaultTeams is the built-in roster of followed teams.
var DefaultTeams = []string{
	"Atalanta",
	"Benevento",
	"Bologna",
	"Cagliari",
	"Como",
	"Cremonese",
	"Crotone",
	"Empoli",
	"Fiorentina",
	"Frosinone",
	"Genoa",
	"Inter",
	"Juventus",
	"Lazio",
	"Lecce",
	"Milan",
	"Monza",
	"Napoli",
	"Parma",
	"Pisa",
	"Roma",
	"Salernitana",
	"Sampdoria",
	"Sassuolo",
	"Spezia",
	"Torino",
	"Udinese",
	"Venezia",
	"Verona",
}

// DefaultBlacklist excludes youth squads and clubs whose names collide with
// followed teams.
var DefaultBlacklist = []string{
	"Youth",
	"Primavera",
	`U\d+`,
	"Inter Miami",
	"Inter Escaldes",
	"New England",
}

// DefaultClipHosts are URL fragments of known clip hosting sites.
var DefaultClipHosts = []string{
	"stream",
	"clip",
	"mixtape",
	"flixtc",
	"v.redd",
	"a.pomfe.co",
	"kyouko.se",
	"twitter",
	"sporttube",
	"dubz.co",
}

// DefaultMediaFlair is the category hint that marks a post as media.
const DefaultMediaFlair = "media"
