package award

// PreferredKeywordBonus is added once when any keyword the award asks about
// appears in the curated table below.
const PreferredKeywordBonus = 16

// preferredKeywords are topical keywords that historically convert well.
// Maintained by hand; keep sorted.
var preferredKeywords = map[string]int{
	"Academic & School":                  PreferredKeywordBonus,
	"Activity Book":                      PreferredKeywordBonus,
	"Addiction & Recovery":               PreferredKeywordBonus,
	"Aliens & Space":                     PreferredKeywordBonus,
	"Alternate & Parallel Reality":       PreferredKeywordBonus,
	"Architecture":                       PreferredKeywordBonus,
	"Beauty & Fashion":                   PreferredKeywordBonus,
	"Caregiving":                         PreferredKeywordBonus,
	"Children & Young Adult":             PreferredKeywordBonus,
	"Children & Young Adult (Age 0-4)":   PreferredKeywordBonus,
	"Children & Young Adult (Age 11-17)": PreferredKeywordBonus,
	"Children & Young Adult (Age 18-26)": PreferredKeywordBonus,
	"Children & Young Adult (Age 26+)":   PreferredKeywordBonus,
	"Children & Young Adult (Age 5-10)":  PreferredKeywordBonus,
	"Coming of Age":                      PreferredKeywordBonus,
	"Cooking & Food":                     PreferredKeywordBonus,
	"Cozy Mystery":                       PreferredKeywordBonus,
	"Death & Dying":                      PreferredKeywordBonus,
	"Diet & Fitness":                     PreferredKeywordBonus,
	"Disability":                         PreferredKeywordBonus,
	"Divorce":                            PreferredKeywordBonus,
	"Dystopia":                           PreferredKeywordBonus,
	"Elderly & Aging":                    PreferredKeywordBonus,
	"Engineering":                        PreferredKeywordBonus,
	"Entrepreneurship":                   PreferredKeywordBonus,
	"Environmental":                      PreferredKeywordBonus,
	"Fable":                              PreferredKeywordBonus,
	"Fairy Tale":                         PreferredKeywordBonus,
	"Film":                               PreferredKeywordBonus,
	"Finance & Economics":                PreferredKeywordBonus,
	"Gardening":                          PreferredKeywordBonus,
	"Grief & Loss":                       PreferredKeywordBonus,
	"Historical (1200 A.D. - 1800 A.D.)": PreferredKeywordBonus,
	"Historical (1800 A.D. - 1950 A.D.)": PreferredKeywordBonus,
	"Historical (500 A.D. - 1200 A.D.)":  PreferredKeywordBonus,
	"Historical (500 B.C. - 500 A.D.)":   PreferredKeywordBonus,
	"Historical (After 1950 A.D.)":       PreferredKeywordBonus,
	"Historical (Pre-500 B.C.)":          PreferredKeywordBonus,
	"Holidays":                           PreferredKeywordBonus,
	"Home & House":                       PreferredKeywordBonus,
	"Illness & Cancer":                   PreferredKeywordBonus,
	"Investing & Retirement":             PreferredKeywordBonus,
	"Journalism":                         PreferredKeywordBonus,
	"Marriage":                           PreferredKeywordBonus,
	"Military":                           PreferredKeywordBonus,
	"Music":                              PreferredKeywordBonus,
	"Mythology":                          PreferredKeywordBonus,
	"Paranormal & Supernatural":          PreferredKeywordBonus,
	"Photography":                        PreferredKeywordBonus,
	"Poetry":                             PreferredKeywordBonus,
	"Pregnancy":                          PreferredKeywordBonus,
	"Public Relations":                   PreferredKeywordBonus,
	"Real Estate":                        PreferredKeywordBonus,
	"Religious Studies":                  PreferredKeywordBonus,
	"Sales & Marketing":                  PreferredKeywordBonus,
	"Social Media":                       PreferredKeywordBonus,
	"Sports":                             PreferredKeywordBonus,
	"Spy & Espionage":                    PreferredKeywordBonus,
	"Sustainability":                     PreferredKeywordBonus,
	"Time Travel":                        PreferredKeywordBonus,
	"True Story":                         PreferredKeywordBonus,
	"Women's Chick Lit":                  PreferredKeywordBonus,
	"Writing & Publishing":               PreferredKeywordBonus,
}
