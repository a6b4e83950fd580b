package config

// DEV_FAVDIAL_YML is written to ./dev/.favdial.dev.yaml the first time
// favdial runs with --dev.
const DEV_FAVDIAL_YML = `
store:
  dataDir: "./dev/data"
  backend: "sqlite"
  ceilingBytes: 4194304
  gcSchedule: "*/10 * * * *"

sqlite:
  passPhrase: passphrase

directory:
  source: "vcard"
  vcardFile: "./dev/contacts.vcf"

workers:
  concurrency: 2
  timeZone: "America/Toronto"

server:
  port: 3000

google:
  applicationCredentials:
  oauthClientFile:
  storage:
    bucket: "favdial"
    prefix: "favdial-dev"
    backupSchedule: "*/30 * * * *"
    enableBackup: false

log:
  level: debug
`
