// SPDX-License-Identifier: MIT
package catalog

// curatedSongs is keyed by canonical key name.
var curatedSongs = map[string][]Song{
	"A Minor": {
		{Title: "Sicko Mode", Artist: "Travis Scott", BPM: 155, Genre: "Hip-Hop", Popularity: 95},
		{Title: "God's Plan", Artist: "Drake", BPM: 77, Genre: "Hip-Hop", Popularity: 98},
		{Title: "HUMBLE.", Artist: "Kendrick Lamar", BPM: 150, Genre: "Hip-Hop", Popularity: 92},
		{Title: "Bad Guy", Artist: "Billie Eilish", BPM: 135, Genre: "Pop", Popularity: 90},
	},
	"D Minor": {
		{Title: "Hotline Bling", Artist: "Drake", BPM: 135, Genre: "Hip-Hop", Popularity: 94},
		{Title: "Congratulations", Artist: "Post Malone", BPM: 123, Genre: "Hip-Hop", Popularity: 89},
		{Title: "Somebody That I Used to Know", Artist: "Gotye", BPM: 129, Genre: "Pop", Popularity: 85},
	},
	"E Minor": {
		{Title: "Rockstar", Artist: "Post Malone ft. 21 Savage", BPM: 160, Genre: "Hip-Hop", Popularity: 96},
		{Title: "Lucid Dreams", Artist: "Juice WRLD", BPM: 84, Genre: "Hip-Hop", Popularity: 93},
		{Title: "Lose Yourself", Artist: "Eminem", BPM: 86, Genre: "Hip-Hop", Popularity: 97},
	},
	"C Major": {
		{Title: "Old Town Road", Artist: "Lil Nas X ft. Billy Ray Cyrus", BPM: 136, Genre: "Hip-Hop", Popularity: 99},
		{Title: "Sunflower", Artist: "Post Malone & Swae Lee", BPM: 90, Genre: "Hip-Hop", Popularity: 91},
		{Title: "Perfect", Artist: "Ed Sheeran", BPM: 95, Genre: "Pop", Popularity: 88},
	},
	"G Major": {
		{Title: "Circles", Artist: "Post Malone", BPM: 120, Genre: "Hip-Hop", Popularity: 87},
		{Title: "The Box", Artist: "Roddy Ricch", BPM: 83, Genre: "Hip-Hop", Popularity: 95},
		{Title: "Shape of You", Artist: "Ed Sheeran", BPM: 96, Genre: "Pop", Popularity: 94},
	},
}

var artistProfiles = []ArtistProfile{
	{
		Name:            "Drake",
		MostUsedKeys:    []string{"A Minor", "D Minor", "E Minor", "C Major"},
		BPMRange:        BPMRange{Min: 70, Max: 140, Avg: 105},
		PreferredGenres: []string{"Hip-Hop", "R&B"},
		TopSongs: []ArtistSong{
			{Title: "God's Plan", Key: "A Minor", BPM: 77, Popularity: 98},
			{Title: "Hotline Bling", Key: "D Minor", BPM: 135, Popularity: 94},
			{Title: "In My Feelings", Key: "E Minor", BPM: 91, Popularity: 92},
			{Title: "One Dance", Key: "C Major", BPM: 104, Popularity: 89},
		},
	},
	{
		Name:            "Travis Scott",
		MostUsedKeys:    []string{"A Minor", "G Minor", "D Major", "E Major"},
		BPMRange:        BPMRange{Min: 130, Max: 180, Avg: 155},
		PreferredGenres: []string{"Hip-Hop", "Trap"},
		TopSongs: []ArtistSong{
			{Title: "Sicko Mode", Key: "A Minor", BPM: 155, Popularity: 95},
			{Title: "Antidote", Key: "D Major", BPM: 140, Popularity: 88},
			{Title: "Goosebumps", Key: "E Major", BPM: 130, Popularity: 90},
			{Title: "Highest in the Room", Key: "G Minor", BPM: 130, Popularity: 87},
		},
	},
	{
		Name:            "Post Malone",
		MostUsedKeys:    []string{"D Minor", "E Minor", "C Major", "G Major"},
		BPMRange:        BPMRange{Min: 90, Max: 160, Avg: 125},
		PreferredGenres: []string{"Hip-Hop", "Pop"},
		TopSongs: []ArtistSong{
			{Title: "Congratulations", Key: "D Minor", BPM: 123, Popularity: 89},
			{Title: "Rockstar", Key: "E Minor", BPM: 160, Popularity: 96},
			{Title: "Sunflower", Key: "C Major", BPM: 90, Popularity: 91},
			{Title: "Circles", Key: "G Major", BPM: 120, Popularity: 87},
		},
	},
}
