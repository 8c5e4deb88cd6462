package storage

import "cryptids/internal/models"

// seedClassifications, seedCryptids and seedImages form the sample catalog
// loaded into empty backends when seeding is enabled. Ids are stable so the
// database backends can insert them verbatim.
var seedClassifications = []models.Classification{
	{ID: 1, Name: "Aquatic", Description: "Creatures reported in lakes, rivers and open sea", CategoryType: "habitat"},
	{ID: 2, Name: "Hominid", Description: "Large bipedal primates", CategoryType: "morphology"},
	{ID: 3, Name: "Winged Entity", Description: "Flying creatures of uncertain origin", CategoryType: "morphology"},
	{ID: 4, Name: "Canid", Description: "Dog- and wolf-like predators", CategoryType: "morphology"},
	{ID: 5, Name: "Reptilian", Description: "Scaled creatures, often linked to livestock attacks", CategoryType: "morphology"},
}

var seedCryptids = []models.Cryptid{
	{
		ID: 1, Name: "Loch Ness Monster", Aliases: []string{"Nessie"}, ClassificationID: 1,
		Status: "unverified", ThreatLevel: "low",
		ShortDescription: "Long-necked creature said to inhabit Loch Ness",
		Description:      "Reports date back to the sixth century; the modern legend began with sightings in 1933.",
	},
	{
		ID: 2, Name: "Bigfoot", Aliases: []string{"Sasquatch"}, ClassificationID: 2,
		Status: "unverified", ThreatLevel: "low",
		ShortDescription: "Large hairy hominid of the Pacific Northwest forests",
		Description:      "Footprint casts and the 1967 Patterson-Gimlin film remain the best known evidence.",
	},
	{
		ID: 3, Name: "Yeti", Aliases: []string{"Abominable Snowman", "Meh-Teh"}, ClassificationID: 2,
		Status: "unverified", ThreatLevel: "moderate",
		ShortDescription: "Ape-like creature of the Himalayas",
		Description:      "Mountaineering expeditions have reported tracks in snow fields since the 1920s.",
	},
	{
		ID: 4, Name: "Mothman", ClassificationID: 3,
		Status: "unverified", ThreatLevel: "moderate",
		ShortDescription: "Red-eyed winged humanoid",
		Description:      "Sighted around Point Pleasant, West Virginia between 1966 and 1967.",
	},
	{
		ID: 5, Name: "Jersey Devil", Aliases: []string{"Leeds Devil"}, ClassificationID: 3,
		Status: "legendary", ThreatLevel: "moderate",
		ShortDescription: "Hooved, winged creature of the Pine Barrens",
		Description:      "A wave of sightings across New Jersey in January 1909 closed schools and mills.",
	},
	{
		ID: 6, Name: "Chupacabra", Aliases: []string{"Goat-sucker"}, ClassificationID: 5,
		Status: "disputed", ThreatLevel: "high",
		ShortDescription: "Spined creature blamed for draining livestock",
		Description:      "First reported in Puerto Rico in 1995; later sightings describe hairless canids.",
	},
	{
		ID: 7, Name: "Beast of Bray Road", ClassificationID: 4,
		Status: "unverified", ThreatLevel: "moderate",
		ShortDescription: "Wolf-like biped seen in rural Wisconsin",
		Description:      "Reported near Elkhorn, Wisconsin since the late 1980s.",
	},
	{
		ID: 8, Name: "Ogopogo", Aliases: []string{"N'ha-a-itk"}, ClassificationID: 1,
		Status: "unverified", ThreatLevel: "low",
		ShortDescription: "Serpentine lake monster of Okanagan Lake",
		Description:      "Described as a multi-humped serpent up to fifteen metres long.",
	},
	{
		ID: 9, Name: "Thunderbird", ClassificationID: 3,
		Status: "legendary", ThreatLevel: "low",
		ShortDescription: "Giant bird of North American tradition",
		Description:      "Accounts describe wingspans large enough to carry off livestock.",
	},
	{
		ID: 10, Name: "Black Shuck", Aliases: []string{"Old Shuck"}, ClassificationID: 4,
		Status: "legendary", ThreatLevel: "high",
		ShortDescription: "Spectral black dog of East Anglia",
		Description:      "Blamed for the 1577 storm damage at Bungay and Blythburgh churches.",
	},
}

var seedImages = []models.Image{
	{ID: 1, CryptidID: 1, URL: "https://images.example.org/cryptids/nessie-1934.jpg", AltText: "Surgeon's photograph of the Loch Ness Monster", Source: "Daily Mail, 1934", License: "public-domain"},
	{ID: 2, CryptidID: 1, URL: "https://images.example.org/cryptids/nessie-sonar.png", AltText: "Sonar contact in Loch Ness", Source: "Operation Deepscan", License: "CC-BY-4.0"},
	{ID: 3, CryptidID: 2, URL: "https://images.example.org/cryptids/bigfoot-cast.jpg", AltText: "Plaster cast of a large footprint", Source: "Bluff Creek, 1967", License: "CC-BY-SA-4.0"},
	{ID: 4, CryptidID: 4, URL: "https://images.example.org/cryptids/mothman-statue.jpg", AltText: "Mothman statue in Point Pleasant", Source: "Point Pleasant, WV", License: "CC-BY-SA-4.0"},
	{ID: 5, CryptidID: 5, URL: "https://images.example.org/cryptids/jersey-devil-1909.jpg", AltText: "Newspaper drawing of the Jersey Devil", Source: "Philadelphia Evening Bulletin, 1909", License: "public-domain"},
	{ID: 6, CryptidID: 6, URL: "https://images.example.org/cryptids/chupacabra-sketch.png", AltText: "Witness sketch of a chupacabra", Source: "Canóvanas, 1995", License: "CC-BY-4.0"},
}

// seedCatalog returns copies of the sample catalog with the derived
// classification names and image flags filled in.
func seedCatalog() ([]*models.Classification, []*models.Cryptid, []*models.Image) {
	names := make(map[int64]string, len(seedClassifications))
	classifications := make([]*models.Classification, 0, len(seedClassifications))
	for _, c := range seedClassifications {
		names[c.ID] = c.Name
		classifications = append(classifications, &c)
	}

	withImages := make(map[int64]bool)
	images := make([]*models.Image, 0, len(seedImages))
	for _, img := range seedImages {
		withImages[img.CryptidID] = true
		images = append(images, &img)
	}

	cryptids := make([]*models.Cryptid, 0, len(seedCryptids))
	for _, c := range seedCryptids {
		c.Aliases = append([]string(nil), c.Aliases...)
		c.Classification = names[c.ClassificationID]
		c.HasImages = withImages[c.ID]
		cryptids = append(cryptids, &c)
	}

	return classifications, cryptids, images
}
