package portal

// Card is one tile on the member home page.
type Card struct {
	Title  string
	Text   string
	Link   string
	Button string
}

const cardsPerRow = 3

var homeCards = []Card{
	{
		Title:  "Slack",
		Text:   "Chat with other members in the chapter Slack workspace.",
		Link:   "/home/slack",
		Button: "Open Slack",
	},
	{
		Title:  "Zoom Meetings",
		Text:   "Upcoming chapter meetings and calls you can join from home.",
		Link:   "/home/zoom",
		Button: "See Meetings",
	},
	{
		Title:  "Events Calendar",
		Text:   "Actions, socials and working group meetings across the chapter.",
		Link:   "https://calendar.bostondsa.org",
		Button: "Open Calendar",
	},
	{
		Title:  "Newsletter",
		Text:   "Catch up on chapter news and announcements.",
		Link:   "https://bostondsa.org/news",
		Button: "Read",
	},
	{
		Title:  "Working Groups",
		Text:   "Find a working group and get involved.",
		Link:   "https://bostondsa.org/working-groups",
		Button: "Browse",
	},
	{
		Title:  "Dues",
		Text:   "Keep your national membership current.",
		Link:   "https://act.dsausa.org/donate/membership",
		Button: "Pay Dues",
	},
}

// cardRows splits cards into rows of per for the grid layout.
func cardRows(cards []Card, per int) [][]Card {
	var rows [][]Card
	for len(cards) > 0 {
		n := per
		if len(cards) < n {
			n = len(cards)
		}
		rows = append(rows, cards[:n])
		cards = cards[n:]
	}
	return rows
}
