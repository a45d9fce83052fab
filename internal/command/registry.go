package command

import "sort"

// Command is one registry entry (spec.md §4.4): a command name, the
// permission bits required to invoke it, an inclusive argument-count
// range, and the handler. MinArgs == -1 disables arity checking.
type Command struct {
	Name       string
	Permission Permission
	MinArgs    int
	MaxArgs    int
	Handler    Handler
}

// Registry is the static command table, sorted by Name at init time
// (spec.md §8 law 1: "for every adjacent pair, name[i] < name[i+1]").
// commandTable below is declared in whatever order is convenient; init
// copies it into Registry and sorts it once. Registry is assigned in init
// rather than initialized directly because commands/notcommands read it,
// which would otherwise make an initialization cycle.
var Registry []Command

var commandTable = []Command{
	{"add", PermAdd, 1, 1, cmdAdd},
	{"addid", PermAdd, 1, 2, cmdAddID},
	{"addtagid", PermControl, 3, 3, cmdAddTagID},
	{"albumart", PermRead, 2, 2, cmdAlbumArt},
	{"binarylimit", PermRead, 1, 1, cmdBinaryLimit},
	{"channels", PermRead, 0, 0, cmdChannels},
	{"clear", PermControl, 0, 0, cmdClear},
	{"clearerror", PermControl, 0, 0, cmdClearError},
	{"cleartagid", PermControl, 1, 2, cmdClearTagID},
	{"close", PermNone, 0, 0, cmdClose},
	{"commands", PermNone, 0, 0, cmdCommands},
	{"config", PermAdmin, 0, 0, cmdConfig},
	{"consume", PermControl, 1, 1, cmdConsume},
	{"count", PermRead, 0, -1, cmdCount},
	{"crossfade", PermControl, 1, 1, cmdCrossfade},
	{"currentsong", PermRead, 0, 0, cmdCurrentSong},
	{"decoders", PermRead, 0, 0, cmdDecoders},
	{"delete", PermControl, 1, 1, cmdDelete},
	{"deleteid", PermControl, 1, 1, cmdDeleteID},
	{"delpartition", PermAdmin, 1, 1, cmdDelPartition},
	{"disableoutput", PermAdmin, 1, 1, cmdDisableOutput},
	{"enableoutput", PermAdmin, 1, 1, cmdEnableOutput},
	{"find", PermRead, 0, -1, cmdFind},
	{"findadd", PermAdd, 0, -1, cmdFindAdd},
	{"getvol", PermRead, 0, 0, cmdGetVol},
	{"idle", PermRead, 0, -1, cmdIdle},
	{"kill", PermAdmin, 0, 0, cmdKill},
	{"list", PermRead, 1, -1, cmdList},
	{"listall", PermRead, 0, 1, cmdListAll},
	{"listallinfo", PermRead, 0, 1, cmdListAllInfo},
	{"listfiles", PermRead, 0, 1, cmdListFiles},
	{"listmounts", PermRead, 0, 0, cmdListMounts},
	{"listplaylist", PermRead, 1, 1, cmdListPlaylist},
	{"listpartitions", PermRead, 0, 0, cmdListPartitions},
	{"listplaylists", PermRead, 0, 0, cmdListPlaylists},
	{"load", PermAdd, 1, 2, cmdLoad},
	{"lsinfo", PermRead, 0, 1, cmdLsInfo},
	{"mixrampdb", PermControl, 1, 1, cmdMixRampDB},
	{"mixrampdelay", PermControl, 1, 1, cmdMixRampDelay},
	{"mount", PermAdmin, 2, 2, cmdMount},
	{"move", PermControl, 2, 2, cmdMove},
	{"moveid", PermControl, 2, 2, cmdMoveID},
	{"moveoutput", PermAdmin, 2, 2, cmdMoveOutput},
	{"newpartition", PermAdmin, 1, 1, cmdNewPartition},
	{"next", PermControl, 0, 0, cmdNext},
	{"noidle", PermNone, 0, 0, cmdNoIdle},
	{"notcommands", PermNone, 0, 0, cmdNotCommands},
	{"outputs", PermRead, 0, 0, cmdOutputs},
	{"outputset", PermAdmin, 3, 3, cmdOutputSet},
	{"partition", PermRead, 1, 1, cmdPartition},
	{"password", PermNone, 1, 1, cmdPassword},
	{"pause", PermControl, 0, 1, cmdPause},
	{"ping", PermNone, 0, 0, cmdPing},
	{"play", PermControl, 0, 1, cmdPlay},
	{"playid", PermControl, 0, 1, cmdPlayID},
	{"playlistadd", PermAdd, 2, 2, cmdPlaylistAdd},
	{"playlistclear", PermControl, 1, 1, cmdPlaylistClear},
	{"playlistdelete", PermControl, 2, 2, cmdPlaylistDelete},
	{"playlistfind", PermRead, 0, -1, cmdPlaylistFind},
	{"playlistid", PermRead, 0, 1, cmdPlaylistID},
	{"playlistinfo", PermRead, 0, 1, cmdPlaylistInfo},
	{"playlistmove", PermControl, 3, 3, cmdPlaylistMove},
	{"playlistsearch", PermRead, 0, -1, cmdPlaylistFind},
	{"plchanges", PermRead, 1, 2, cmdPlChanges},
	{"plchangesposid", PermRead, 1, 2, cmdPlChangesPosID},
	{"previous", PermControl, 0, 0, cmdPrevious},
	{"prio", PermControl, 2, -1, cmdPrio},
	{"prioid", PermControl, 2, -1, cmdPrioID},
	{"random", PermControl, 1, 1, cmdRandom},
	{"rangeid", PermControl, 2, 2, cmdRangeID},
	{"readcomments", PermRead, 1, 1, cmdReadComments},
	{"readmessages", PermRead, 0, 0, cmdReadMessages},
	{"readpicture", PermRead, 2, 2, cmdReadPicture},
	{"rename", PermControl, 2, 2, cmdRename},
	{"repeat", PermControl, 1, 1, cmdRepeat},
	{"replay_gain_mode", PermControl, 1, 1, cmdReplayGainMode},
	{"replay_gain_status", PermRead, 0, 0, cmdReplayGainStatus},
	{"rescan", PermAdmin, 0, 1, cmdRescan},
	{"rm", PermControl, 1, 1, cmdRm},
	{"save", PermControl, 1, 1, cmdSave},
	{"search", PermRead, 0, -1, cmdSearch},
	{"searchadd", PermAdd, 0, -1, cmdSearchAdd},
	{"searchaddpl", PermAdd, 1, -1, cmdSearchAddPl},
	{"seek", PermControl, 2, 2, cmdSeek},
	{"seekcur", PermControl, 1, 1, cmdSeekCur},
	{"seekid", PermControl, 2, 2, cmdSeekID},
	{"sendmessage", PermRead, 2, 2, cmdSendMessage},
	{"setvol", PermControl, 1, 1, cmdSetVol},
	{"shuffle", PermControl, 0, 1, cmdShuffle},
	{"single", PermControl, 1, 1, cmdSingle},
	{"stats", PermRead, 0, 0, cmdStats},
	{"status", PermRead, 0, 0, cmdStatus},
	{"sticker", PermAdmin, 3, -1, cmdSticker},
	{"stop", PermControl, 0, 0, cmdStop},
	{"subscribe", PermRead, 1, 1, cmdSubscribe},
	{"swap", PermControl, 2, 2, cmdSwap},
	{"swapid", PermControl, 2, 2, cmdSwapID},
	{"tagtypes", PermRead, 0, 0, cmdTagTypes},
	{"toggleoutput", PermAdmin, 1, 1, cmdToggleOutput},
	{"unmount", PermAdmin, 1, 1, cmdUnmount},
	{"unsubscribe", PermRead, 1, 1, cmdUnsubscribe},
	{"update", PermAdmin, 0, 1, cmdUpdate},
	{"urlhandlers", PermNone, 0, 0, cmdURLHandlers},
	{"volume", PermControl, 1, 1, cmdVolume},
}

func init() {
	Registry = commandTable
	sort.Slice(Registry, func(i, j int) bool { return Registry[i].Name < Registry[j].Name })
}

// Lookup finds a command by exact, case-sensitive name via binary search
// (spec.md §4.4: "registry is sorted at build time; lookups are case
// sensitive").
func Lookup(name string) (Command, bool) {
	i := sort.Search(len(Registry), func(i int) bool { return Registry[i].Name >= name })
	if i < len(Registry) && Registry[i].Name == name {
		return Registry[i], true
	}
	return Command{}, false
}
