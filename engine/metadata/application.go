package metadata

/**
 * @brief Recognized applications. Resolved by the platform layer from the
 * application info the client supplies at instance creation.
 */
type AppProfile uint32

const (
	AppProfileDefault AppProfile = iota
	AppProfileDota2
	AppProfileTalosPrinciple
	AppProfileSeriousSamFusion
	AppProfileMadMax
	AppProfileF1_2017
)

/** @brief Graphics IP level of the target device. */
type GfxIpLevel uint32

const (
	GfxIpLevelNone GfxIpLevel = iota
	GfxIpLevel6
	GfxIpLevel7
	GfxIpLevel8
	GfxIpLevel8_1
	GfxIpLevel9
	GfxIpLevel10_1
	GfxIpLevel10_3
)

/** @brief Hardware revision of the target device. Ordered by release. */
type AsicRevision uint32

const (
	AsicRevisionUnknown AsicRevision = iota
	AsicRevisionTahiti
	AsicRevisionPitcairn
	AsicRevisionCapeVerde
	AsicRevisionOland
	AsicRevisionHainan
	AsicRevisionBonaire
	AsicRevisionHawaii
	AsicRevisionKalindi
	AsicRevisionGodavari
	AsicRevisionIceland
	AsicRevisionCarrizo
	AsicRevisionTonga
	AsicRevisionFiji
	AsicRevisionPolaris10
	AsicRevisionPolaris11
	AsicRevisionPolaris12
	AsicRevisionVega10
	AsicRevisionRaven
	AsicRevisionVega12
	AsicRevisionVega20
	AsicRevisionRenoir
	AsicRevisionNavi10
	AsicRevisionNavi12
	AsicRevisionNavi14
)
